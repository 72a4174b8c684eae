package domain

// RawCountryInfo is the nested identity block of a country record.
type RawCountryInfo struct {
	ISO2 string  `json:"iso2"`
	ISO3 string  `json:"iso3"`
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
	Flag string  `json:"flag"`
}

// RawCountry is the upstream shape of both /countries elements and
// /countries/{iso2} responses.
type RawCountry struct {
	Country        string         `json:"country"`
	CountryInfo    RawCountryInfo `json:"countryInfo"`
	Updated        int64          `json:"updated"`
	Cases          int64          `json:"cases"`
	TodayCases     int64          `json:"todayCases"`
	Recovered      int64          `json:"recovered"`
	TodayRecovered int64          `json:"todayRecovered"`
	Deaths         int64          `json:"deaths"`
	TodayDeaths    int64          `json:"todayDeaths"`
}

// RawGlobal is the upstream shape of /all.
type RawGlobal struct {
	Updated           int64 `json:"updated"`
	Cases             int64 `json:"cases"`
	TodayCases        int64 `json:"todayCases"`
	Recovered         int64 `json:"recovered"`
	TodayRecovered    int64 `json:"todayRecovered"`
	Deaths            int64 `json:"deaths"`
	TodayDeaths       int64 `json:"todayDeaths"`
	AffectedCountries int   `json:"affectedCountries"`
}

// RawHistory is the upstream shape of /historical/all: cumulative totals per
// metric keyed by "M/D/YY" date strings.
type RawHistory struct {
	Cases     map[string]int64 `json:"cases"`
	Deaths    map[string]int64 `json:"deaths"`
	Recovered map[string]int64 `json:"recovered"`
}
