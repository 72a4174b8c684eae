package domain

import "math"

// markerStyle is the circle colour and radius multiplier for a metric.
// Radius is sqrt(value) * multiplier, in meters.
type markerStyle struct {
	Hex        string
	Multiplier float64
}

var markerStyles = map[MetricType]markerStyle{
	MetricCases:     {Hex: "#CC1034", Multiplier: 800},
	MetricRecovered: {Hex: "#7dd71d", Multiplier: 1200},
	MetricDeaths:    {Hex: "#fb4443", Multiplier: 2000},
}

// Marker is a map circle for one country.
type Marker struct {
	Name      string      `json:"name"`
	ISOCode   string      `json:"isoCode,omitempty"`
	Flag      string      `json:"flag,omitempty"`
	Center    Coordinates `json:"center"`
	Metric    MetricType  `json:"metric"`
	Value     int64       `json:"value"`
	Radius    float64     `json:"radius"`
	Color     string      `json:"color"`
	Cases     string      `json:"cases"`
	Recovered string      `json:"recovered"`
	Deaths    string      `json:"deaths"`
}

// MapMarkers derives one circle per named country for the metric. Records
// with a negative value get a zero radius.
func MapMarkers(countries []CountrySummary, metric MetricType) []Marker {
	style, ok := markerStyles[metric]
	if !ok {
		style = markerStyles[MetricCases]
		metric = MetricCases
	}

	markers := make([]Marker, 0, len(countries))
	for _, c := range countries {
		if c.Name == "" {
			continue
		}
		value := c.Total(metric)
		radius := 0.0
		if value > 0 {
			radius = math.Sqrt(float64(value)) * style.Multiplier
		}
		markers = append(markers, Marker{
			Name:      c.Name,
			ISOCode:   c.ISOCode,
			Flag:      c.Flag,
			Center:    c.Coordinates,
			Metric:    metric,
			Value:     value,
			Radius:    radius,
			Color:     style.Hex,
			Cases:     FormatCount(c.Cases),
			Recovered: FormatCount(c.Recovered),
			Deaths:    FormatCount(c.Deaths),
		})
	}
	return markers
}
