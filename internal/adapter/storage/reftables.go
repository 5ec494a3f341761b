// internal/adapter/storage/reftables.go

package storage

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"essg/internal/apperr"
	"essg/internal/domain/geocode"
)

// ReferenceTables is the process-wide, read-only lookup surface loaded once
// at startup from the countries and states tables.
type ReferenceTables struct {
	countriesByCode map[string]geocode.Country
	statesByName    map[string]geocode.State
	statesByCode    map[string]geocode.State
}

// LoadReferenceTables reads the full countries and states tables and
// builds the immutable in-memory lookup structures the geocoder client
// consults while scoring matches.
func LoadReferenceTables(ctx context.Context, db *pgxpool.Pool) (*ReferenceTables, error) {
	rt := &ReferenceTables{
		countriesByCode: make(map[string]geocode.Country),
		statesByName:    make(map[string]geocode.State),
		statesByCode:    make(map[string]geocode.State),
	}

	rows, err := db.Query(ctx, `SELECT code, common_name, aliases FROM countries`)
	if err != nil {
		return nil, &apperr.StoreError{Op: "loading countries", Err: err}
	}
	for rows.Next() {
		var c geocode.Country
		var aliases string
		if err := rows.Scan(&c.Code, &c.CommonName, &aliases); err != nil {
			rows.Close()
			return nil, &apperr.StoreError{Op: "scanning country row", Err: err}
		}
		c.Aliases = splitAliases(aliases)
		rt.countriesByCode[strings.ToUpper(c.Code)] = c
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, &apperr.StoreError{Op: "iterating countries", Err: err}
	}

	rows, err = db.Query(ctx, `SELECT state, code, aliases FROM states`)
	if err != nil {
		return nil, &apperr.StoreError{Op: "loading states", Err: err}
	}
	for rows.Next() {
		var s geocode.State
		var aliases string
		if err := rows.Scan(&s.State, &s.Code, &aliases); err != nil {
			rows.Close()
			return nil, &apperr.StoreError{Op: "scanning state row", Err: err}
		}
		s.Aliases = splitAliases(aliases)
		rt.statesByName[strings.ToUpper(s.State)] = s
		if s.Code != "" {
			rt.statesByCode[strings.ToUpper(s.Code)] = s
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, &apperr.StoreError{Op: "iterating states", Err: err}
	}

	return rt, nil
}

func splitAliases(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CountryByCode implements geocode.ReferenceTables.
func (rt *ReferenceTables) CountryByCode(code string) (geocode.Country, bool) {
	c, ok := rt.countriesByCode[strings.ToUpper(code)]
	return c, ok
}

// StateByName implements geocode.ReferenceTables.
//
// "Name" here is the state/region string as returned by the geocoding
// service (e.g. a two-letter code or a full name); states are keyed by the
// state column, which is the full name in the reference table, so callers
// needing a code-based lookup should use StateByCode instead.
func (rt *ReferenceTables) StateByName(state string) (geocode.State, bool) {
	s, ok := rt.statesByName[strings.ToUpper(state)]
	return s, ok
}

// StateByCode finds a US state by its two-letter code, used when the
// geocoding service's Region field is already a postal code.
func (rt *ReferenceTables) StateByCode(code string) (geocode.State, bool) {
	s, ok := rt.statesByCode[strings.ToUpper(code)]
	return s, ok
}
