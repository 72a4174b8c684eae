package domain

import (
	"fmt"
	"sort"
	"time"
)

// historyDateLayout is the upstream "M/D/YY" key format.
const historyDateLayout = "1/2/06"

// DatedValue is one cumulative total on a given day.
type DatedValue struct {
	Date  time.Time `json:"date"`
	Value int64     `json:"value"`
}

// History holds chronologically ordered cumulative series per metric.
type History struct {
	Cases     []DatedValue `json:"cases"`
	Recovered []DatedValue `json:"recovered"`
	Deaths    []DatedValue `json:"deaths"`
}

// Series returns the cumulative series for a metric.
func (h History) Series(metric MetricType) []DatedValue {
	switch metric {
	case MetricRecovered:
		return h.Recovered
	case MetricDeaths:
		return h.Deaths
	default:
		return h.Cases
	}
}

// ChartPoint is one point of the "new per day" line graph.
type ChartPoint struct {
	X time.Time `json:"x"`
	Y int64     `json:"y"`
}

// ParseHistory converts the date-keyed upstream maps into sorted series.
func ParseHistory(raw RawHistory) (History, error) {
	cases, err := parseSeries(raw.Cases)
	if err != nil {
		return History{}, fmt.Errorf("cases: %w", err)
	}
	recovered, err := parseSeries(raw.Recovered)
	if err != nil {
		return History{}, fmt.Errorf("recovered: %w", err)
	}
	deaths, err := parseSeries(raw.Deaths)
	if err != nil {
		return History{}, fmt.Errorf("deaths: %w", err)
	}
	return History{Cases: cases, Recovered: recovered, Deaths: deaths}, nil
}

// DailySeries turns a cumulative series into day-over-day increments. The
// first day has no predecessor and is dropped.
func DailySeries(h History, metric MetricType) []ChartPoint {
	series := h.Series(metric)
	if len(series) < 2 {
		return []ChartPoint{}
	}
	points := make([]ChartPoint, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		points = append(points, ChartPoint{
			X: series[i].Date,
			Y: series[i].Value - series[i-1].Value,
		})
	}
	return points
}

func parseSeries(m map[string]int64) ([]DatedValue, error) {
	out := make([]DatedValue, 0, len(m))
	for key, v := range m {
		d, err := time.Parse(historyDateLayout, key)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", key, err)
		}
		out = append(out, DatedValue{Date: d, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}
