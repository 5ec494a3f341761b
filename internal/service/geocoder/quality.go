// internal/service/geocoder/quality.go

package geocoder

import (
	"strings"

	"essg/internal/domain/geocode"
)

const unitedStates = "United States"

// scoreForward resolves country/state names from the reference tables, whole-word
// matches them (and the city candidate) against the cleaned original
// input, and sums the quality score. matched is false when the response
// carries Status=U or no Country, in which case the caller must treat the
// result as empty.
func (c *Client) scoreForward(cleaned string, resp forwardResponse) (geocode.Result, bool) {
	if resp.Status == "U" || resp.Country == "" {
		return geocode.Result{}, false
	}

	country, _ := c.refTables.CountryByCode(resp.Country)
	l0 := country.CommonName
	if l0 == "" {
		l0 = resp.Country
	}

	isUS := l0 == unitedStates

	cityCandidate := resp.City
	if cityCandidate == "" {
		cityCandidate = resp.MetroArea
	}
	if cityCandidate == "" && !isUS {
		cityCandidate = resp.Region
	}
	l3 := stripParens(cityCandidate)

	var l1 string
	var stateCode, stateName string
	var stateAliases []string
	if isUS {
		if st, ok := lookupUSState(c.refTables, resp.Region); ok {
			l1 = st.State
			stateCode = st.Code
			stateName = st.State
			stateAliases = st.Aliases
		}
	} else if resp.Region != "" && resp.Region != l3 && resp.Region != "England" {
		l1 = resp.Region
	}

	paddedOriginal := padded(cleaned)

	countryMatched := wholeWordMatchAny(paddedOriginal, l0, country.Aliases)

	cityMatched := false
	if l3 != "" {
		cityMatched = wholeWordMatch(paddedOriginal, l3)
	}

	stateMatched := false
	if isUS {
		if stateName != "" && wholeWordMatchAny(paddedOriginal, stateName, stateAliases) {
			stateMatched = true
		}
		if !stateMatched && stateCode != "" && wholeWordMatch(paddedOriginal, stateCode) {
			stateMatched = true
		}
	} else if l1 != "" {
		probe := " " + ampersandEquivalents(paddedOriginal) + " "
		candidate := ampersandEquivalents(l1)
		stateMatched = wholeWordMatch(probe, candidate)
	}

	quality := 0
	switch {
	case isUS:
		quality = 9
	case countryMatched:
		quality = 10
	default:
		quality = 0
	}
	if cityMatched {
		quality += 4
	}
	if stateMatched {
		quality += 4
	}

	return geocode.Result{
		LocString: cleaned,
		Lat:       round3(resp.Y),
		Lon:       round3(resp.X),
		Quality:   quality,
		L0:        l0,
		L1:        l1,
		L3:        l3,
		Source:    geocode.SourceForward,
	}, true
}

// lookupUSState resolves a Region value against the states reference
// table. ESRI commonly returns the two-letter postal code, so that lookup
// is tried first; the full state name is tried as a fallback.
func lookupUSState(refTables geocode.ReferenceTables, region string) (geocode.State, bool) {
	region = strings.TrimSpace(region)
	if region == "" {
		return geocode.State{}, false
	}
	if st, ok := refTables.StateByCode(region); ok {
		return st, true
	}
	return refTables.StateByName(region)
}
