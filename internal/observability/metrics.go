package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the tracker.
type Metrics struct {
	FetchRequests    *prometheus.CounterVec   // labels: kind={global,countries,country,history}, outcome={success,error}
	FetchDuration    *prometheus.HistogramVec // labels: kind
	StaleResults     *prometheus.CounterVec   // labels: kind
	Selections       *prometheus.CounterVec   // labels: event
	CountriesTracked prometheus.Gauge
	TrackerRunning   prometheus.Gauge

	// Snapshot feed metrics.
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all tracker metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_tracker",
			Name:      "fetch_requests_total",
			Help:      "Upstream disease.sh requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "covid_tracker",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream request duration including decoding and normalization.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		StaleResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_tracker",
			Name:      "stale_results_total",
			Help:      "Fetch results discarded because a newer request superseded them.",
		}, []string{"kind"}),
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_tracker",
			Name:      "selections_total",
			Help:      "Applied user interactions by event.",
		}, []string{"event"}),
		CountriesTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_tracker",
			Name:      "countries_tracked",
			Help:      "Countries in the last resolved country list.",
		}),
		TrackerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_tracker",
			Name:      "tracker_running",
			Help:      "1 when the event loop is active, 0 when shut down.",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_tracker",
			Name:      "snapshots_published_total",
			Help:      "Ranked country lists written to the snapshot topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid_tracker",
			Name:      "publish_errors_total",
			Help:      "Failed snapshot publications.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_tracker",
			Name:      "geocode_requests_total",
			Help:      "Coordinate backfill geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "covid_tracker",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "covid_tracker",
			Name:      "geocode_enabled",
			Help:      "1 when coordinate backfill is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.StaleResults,
		m.Selections,
		m.CountriesTracked,
		m.TrackerRunning,
		m.SnapshotsPublished,
		m.PublishErrors,
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FetchRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "covid_tracker", Name: "fetch_requests_total"}, []string{"kind", "outcome"}),
		FetchDuration:      prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "covid_tracker", Name: "fetch_duration_seconds"}, []string{"kind"}),
		StaleResults:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "covid_tracker", Name: "stale_results_total"}, []string{"kind"}),
		Selections:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "covid_tracker", Name: "selections_total"}, []string{"event"}),
		CountriesTracked:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "covid_tracker", Name: "countries_tracked"}),
		TrackerRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "covid_tracker", Name: "tracker_running"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "covid_tracker", Name: "snapshots_published_total"}),
		PublishErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "covid_tracker", Name: "publish_errors_total"}),
		GeocodeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "covid_tracker", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "covid_tracker", Name: "geocode_api_duration_seconds"}),
		GeocodeEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "covid_tracker", Name: "geocode_enabled"}),
	}
}
