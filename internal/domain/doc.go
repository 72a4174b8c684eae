// Package domain models the COVID-19 statistics published by the disease.sh
// API and the dashboard state built from them.
//
// # Data Source
//
// Statistics come from https://disease.sh/v3/covid-19, which aggregates
// Worldometers and Johns Hopkins data. Three snapshot shapes are consumed:
//
//	/all              worldwide totals (RawGlobal)
//	/countries        one RawCountry per country, upstream order
//	/countries/{iso2} a single RawCountry
//
// plus /historical/all?lastdays=N for the line graph (RawHistory).
//
// # Upstream Conventions
//
// Country identity lives under "countryInfo": iso2 is null for non-country
// entries such as cruise ships ("Diamond Princess", "MS Zaandam"), and lat/long
// are 0 when the upstream has no centroid. "updated" is epoch milliseconds.
// Missing numeric fields decode as 0.
//
// Historical series are cumulative totals keyed by "M/D/YY" dates, e.g.
// "3/9/23". Go maps do not preserve order, so [ParseHistory] sorts them.
//
// # Dashboard State
//
// [Dashboard] is replaced, never mutated, by [Reduce]. Fetch results carry the
// sequence number of the command that produced them; only the latest issued
// sequence for a [Slot] may change state. This gives last-requested-wins
// semantics when a user switches countries faster than the upstream responds.
package domain
