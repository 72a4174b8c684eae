package domain

import "strings"

// InfoBox is one headline counter card.
type InfoBox struct {
	Metric MetricType `json:"metric"`
	Title  string     `json:"title"`
	Today  string     `json:"today"`
	Total  string     `json:"total"`
	Active bool       `json:"active"`
	Red    bool       `json:"red"`
}

var infoBoxTitles = map[MetricType]string{
	MetricCases:     "Coronavirus Cases",
	MetricRecovered: "Recovered",
	MetricDeaths:    "Deaths",
}

// InfoBoxes builds the three counters for the current summary.
func InfoBoxes(info GlobalSummary, selected MetricType) []InfoBox {
	boxes := make([]InfoBox, 0, len(MetricTypes))
	for _, m := range MetricTypes {
		boxes = append(boxes, InfoBox{
			Metric: m,
			Title:  infoBoxTitles[m],
			Today:  FormatCount(info.Today(m)),
			Total:  FormatCount(info.Total(m)),
			Active: m == selected,
			Red:    m != MetricRecovered,
		})
	}
	return boxes
}

// CountryOption is one entry of the country selector.
type CountryOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CountryOptions lists "Worldwide" followed by every country with an ISO code,
// in upstream order.
func CountryOptions(countries []CountrySummary) []CountryOption {
	opts := make([]CountryOption, 0, len(countries)+1)
	opts = append(opts, CountryOption{Name: "Worldwide", Value: Worldwide})
	for _, c := range countries {
		if !c.Identified() {
			continue
		}
		opts = append(opts, CountryOption{Name: c.Name, Value: c.ISOCode})
	}
	return opts
}

// TableRow is one line of the "live cases by country" table.
type TableRow struct {
	Rank       int    `json:"rank"`
	Country    string `json:"country"`
	ISOCode    string `json:"isoCode"`
	Flag       string `json:"flag,omitempty"`
	Cases      int64  `json:"cases"`
	CasesLabel string `json:"casesLabel"`
}

// TableRows renders an already ranked list.
func TableRows(ranking []CountrySummary) []TableRow {
	rows := make([]TableRow, 0, len(ranking))
	for i, c := range ranking {
		rows = append(rows, TableRow{
			Rank:       i + 1,
			Country:    c.Name,
			ISOCode:    c.ISOCode,
			Flag:       c.Flag,
			Cases:      c.Cases,
			CasesLabel: FormatCount(c.Cases),
		})
	}
	return rows
}

// GraphTitle is the heading of the line graph, e.g. "Worldwide New Deaths".
func GraphTitle(metric MetricType) string {
	name := string(metric)
	if name == "" {
		name = string(MetricCases)
	}
	return "Worldwide New " + strings.ToUpper(name[:1]) + name[1:]
}
