package domain

import (
	"errors"
	"fmt"
	"time"
)

// Worldwide is the selector value that stands for the global aggregate.
const Worldwide = "worldwide"

// ErrInvalidMetric is returned when a metric name is not one of cases,
// recovered, or deaths.
var ErrInvalidMetric = errors.New("invalid metric type")

// MetricType selects which statistic drives the counters, map, and graph.
type MetricType string

const (
	MetricCases     MetricType = "cases"
	MetricRecovered MetricType = "recovered"
	MetricDeaths    MetricType = "deaths"
)

// MetricTypes lists every metric in display order.
var MetricTypes = []MetricType{MetricCases, MetricRecovered, MetricDeaths}

// ParseMetricType validates a metric name.
func ParseMetricType(s string) (MetricType, error) {
	switch m := MetricType(s); m {
	case MetricCases, MetricRecovered, MetricDeaths:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMetric, s)
}

// Metrics holds the six counters shared by every summary shape.
type Metrics struct {
	Cases          int64 `json:"cases"`
	TodayCases     int64 `json:"todayCases"`
	Recovered      int64 `json:"recovered"`
	TodayRecovered int64 `json:"todayRecovered"`
	Deaths         int64 `json:"deaths"`
	TodayDeaths    int64 `json:"todayDeaths"`
}

// Total returns the cumulative value for the metric.
func (m Metrics) Total(metric MetricType) int64 {
	switch metric {
	case MetricRecovered:
		return m.Recovered
	case MetricDeaths:
		return m.Deaths
	default:
		return m.Cases
	}
}

// Today returns the value reported for the current day.
func (m Metrics) Today(metric MetricType) int64 {
	switch metric {
	case MetricRecovered:
		return m.TodayRecovered
	case MetricDeaths:
		return m.TodayDeaths
	default:
		return m.TodayCases
	}
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the pair is the (0,0) placeholder the upstream uses
// for unknown centroids.
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// CountrySummary is one country's statistics at fetch time.
type CountrySummary struct {
	Name        string      `json:"name"`
	ISOCode     string      `json:"isoCode"`
	ISO3        string      `json:"iso3,omitempty"`
	Flag        string      `json:"flag,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
	Metrics
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identified reports whether the record has both a name and an ISO code.
func (c CountrySummary) Identified() bool {
	return c.Name != "" && c.ISOCode != ""
}

// GlobalSummary is the aggregate shown in the headline counters. Scope is
// Worldwide or the ISO code of the country whose detail it holds.
type GlobalSummary struct {
	Scope             string `json:"scope"`
	AffectedCountries int    `json:"affectedCountries,omitempty"`
	Metrics
	UpdatedAt time.Time `json:"updatedAt"`
}
