// internal/service/alertsvc/render.go

package alertsvc

import (
	"fmt"
	"strings"

	"essg/internal/config"
	"essg/internal/domain/alert"
	"essg/internal/domain/tweet"
)

const sectionRule = "-------------" // 13 dashes

const footer = `
This alert was generated automatically from a spike in short-term tweet
activity. It has not been seismically verified. Do not rely on it as the
sole basis for an emergency response.`

// fileTimestampLayout is the YYYY-MM-DD_HH-MM-SS pattern used in the alert
// filename.
const fileTimestampLayout = "2006-01-02_15-04-05"

// subjectTimestampLayout is the YYYY/MM/DD HH:MM:SS pattern used inside
// the Subject: line and per-tweet TIME lines.
const subjectTimestampLayout = "2006/01/02 15:04:05"

// Filename returns the "email<YYYY-MM-DD_HH-MM-SS>.txt" name for an alert
// detected at spec.DetectionTime.
func Filename(spec alert.Spec) string {
	return fmt.Sprintf("email%s.txt", spec.DetectionTime.Format(fileTimestampLayout))
}

// Render produces the full plain-text alert body: subject/from headers,
// detection time, the consensus region block, triggering tweets, other
// tweets, and the fixed footer.
func Render(spec alert.Spec, mailCfg config.MailConfig) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Subject: %s %s %s\n", spec.SubjectLocation, spec.DetectionTime.Format(subjectTimestampLayout), mailCfg.SubjectTag)
	fmt.Fprintf(&b, "From: %s\n", mailCfg.From)

	b.WriteString(sectionRule + "\n")
	b.WriteString("Detection Time\n")
	b.WriteString(spec.DetectionTime.Format(subjectTimestampLayout) + "\n")

	b.WriteString(sectionRule + "\n")
	b.WriteString("Possibly felt in\n")
	if spec.HasConsensus {
		fmt.Fprintf(&b, "%s (%s)\n", spec.SubjectLocation, spec.MatchRatio)
		if spec.ConsensusGeocode.Lat != 0 || spec.ConsensusGeocode.Lon != 0 {
			fmt.Fprintf(&b, "Coordinates: %.3f, %.3f\n", spec.ConsensusGeocode.Lat, spec.ConsensusGeocode.Lon)
		}
		fmt.Fprintf(&b, "City: %s  Level1: %s  Country: %s\n",
			spec.ConsensusGeocode.L3, spec.ConsensusGeocode.L1, spec.ConsensusGeocode.L0)
		if len(spec.TopWords) > 0 {
			words := make([]string, len(spec.TopWords))
			for i, w := range spec.TopWords {
				words[i] = fmt.Sprintf("%s(%d)", w.Word, w.Count)
			}
			b.WriteString("Top words: " + strings.Join(words, ", ") + "\n")
		}
	} else {
		b.WriteString("Location undetermined\n")
	}

	b.WriteString(sectionRule + "\n")
	b.WriteString("Triggering Tweets\n")
	for _, gt := range spec.Triggering {
		fmt.Fprintf(&b, "TIME %s\n", gt.Tweet.CreatedAt.Format(subjectTimestampLayout))
		fmt.Fprintf(&b, "UL: %s\n", locationText(gt.Tweet))
		if gt.HasGeo {
			fmt.Fprintf(&b, "GEO: %.3f,%.3f (%s)\n", gt.Geo.Lat, gt.Geo.Lon, gt.Geo.Source.String())
			fmt.Fprintf(&b, "GEOS: %s\n", gt.Geo.Geos())
		} else {
			b.WriteString("GEO: \n")
			b.WriteString("GEOS: \n")
		}
		fmt.Fprintf(&b, "TXT: %s\n", gt.Tweet.Text)
	}

	b.WriteString(sectionRule + "\n")
	b.WriteString("Other Tweets\n")
	for _, t := range spec.Other {
		fmt.Fprintf(&b, "TIME %s\n", t.CreatedAt.Format(subjectTimestampLayout))
		fmt.Fprintf(&b, "UL: %s\n", locationText(t))
		fmt.Fprintf(&b, "TXT: %s\n", t.Text)
	}

	b.WriteString(sectionRule + "\n")
	b.WriteString(footer)
	b.WriteString("\n")

	return b.String()
}

// locationText renders the raw user-supplied location for the UL: line.
func locationText(t tweet.Tweet) string {
	switch loc := t.Location.(type) {
	case tweet.LocationString:
		return loc.Text
	case tweet.GeoLocation:
		return fmt.Sprintf("%.3f,%.3f", loc.Lat, loc.Lon)
	default:
		return ""
	}
}
