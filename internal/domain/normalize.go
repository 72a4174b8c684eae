package domain

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrMissingIdentity is returned for a country record without a name or ISO code.
var ErrMissingIdentity = errors.New("country record missing name or iso code")

// Normalize maps upstream country records into CountrySummary values, keeping
// upstream order. Records with missing identity are kept so the map can still
// plot them; RankByActiveCases drops them.
func Normalize(records []RawCountry) []CountrySummary {
	out := make([]CountrySummary, 0, len(records))
	for _, rec := range records {
		out = append(out, normalizeRecord(rec))
	}
	return out
}

// NormalizeCountry maps a single-country response.
func NormalizeCountry(rec RawCountry) (CountrySummary, error) {
	c := normalizeRecord(rec)
	if !c.Identified() {
		return CountrySummary{}, ErrMissingIdentity
	}
	return c, nil
}

// NormalizeGlobal maps the worldwide response.
func NormalizeGlobal(rec RawGlobal) GlobalSummary {
	return GlobalSummary{
		Scope:             Worldwide,
		AffectedCountries: rec.AffectedCountries,
		Metrics: Metrics{
			Cases:          rec.Cases,
			TodayCases:     rec.TodayCases,
			Recovered:      rec.Recovered,
			TodayRecovered: rec.TodayRecovered,
			Deaths:         rec.Deaths,
			TodayDeaths:    rec.TodayDeaths,
		},
		UpdatedAt: fromEpochMillis(rec.Updated),
	}
}

// RankByActiveCases returns the identified records sorted by descending cases.
// Ties keep their input order. The input slice is not modified.
func RankByActiveCases(records []CountrySummary) []CountrySummary {
	ranked := make([]CountrySummary, 0, len(records))
	for _, c := range records {
		if c.Identified() {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Cases > ranked[j].Cases
	})
	return ranked
}

// FindCountry looks up a summary by ISO code, case-insensitively.
func FindCountry(countries []CountrySummary, code string) (CountrySummary, bool) {
	for _, c := range countries {
		if c.ISOCode != "" && strings.EqualFold(c.ISOCode, code) {
			return c, true
		}
	}
	return CountrySummary{}, false
}

func normalizeRecord(rec RawCountry) CountrySummary {
	return CountrySummary{
		Name:        strings.TrimSpace(rec.Country),
		ISOCode:     strings.ToUpper(strings.TrimSpace(rec.CountryInfo.ISO2)),
		ISO3:        strings.ToUpper(strings.TrimSpace(rec.CountryInfo.ISO3)),
		Flag:        rec.CountryInfo.Flag,
		Coordinates: Coordinates{Lat: rec.CountryInfo.Lat, Lng: rec.CountryInfo.Long},
		Metrics: Metrics{
			Cases:          rec.Cases,
			TodayCases:     rec.TodayCases,
			Recovered:      rec.Recovered,
			TodayRecovered: rec.TodayRecovered,
			Deaths:         rec.Deaths,
			TodayDeaths:    rec.TodayDeaths,
		},
		UpdatedAt: fromEpochMillis(rec.Updated),
	}
}

func fromEpochMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
