package tracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/covid-tracker-service/internal/domain"
	"github.com/couchcryptid/covid-tracker-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

var fixedNow = time.Date(2021, 3, 14, 12, 0, 0, 0, time.UTC)

func rawCountry(name, iso string, lat, lng float64, cases int64) domain.RawCountry {
	return domain.RawCountry{
		Country:     name,
		CountryInfo: domain.RawCountryInfo{ISO2: iso, Lat: lat, Long: lng},
		Cases:       cases,
	}
}

// fakeSource serves canned upstream data. A gate registered for a fetch
// blocks that call until the channel is closed.
type fakeSource struct {
	mu        sync.Mutex
	global    domain.RawGlobal
	countries []domain.RawCountry
	history   domain.RawHistory
	errs      map[string]error
	gates     map[string]chan struct{}
	calls     map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		global: domain.RawGlobal{Cases: 5000, TodayCases: 50, Deaths: 100},
		countries: []domain.RawCountry{
			rawCountry("Peru", "PE", -10, -76, 500),
			rawCountry("Chile", "CL", -30, -71, 900),
			rawCountry("France", "FR", 46, 2, 700),
			{Country: "Diamond Princess", Cases: 712},
		},
		history: domain.RawHistory{
			Cases:     map[string]int64{"3/1/21": 100, "3/2/21": 150, "3/3/21": 175},
			Deaths:    map[string]int64{"3/1/21": 1, "3/2/21": 2, "3/3/21": 4},
			Recovered: map[string]int64{"3/1/21": 10, "3/2/21": 20, "3/3/21": 40},
		},
		errs:  map[string]error{},
		gates: map[string]chan struct{}{},
		calls: map[string]int{},
	}
}

func (f *fakeSource) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeSource) failWith(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[key] = err
}

func (f *fakeSource) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeSource) enter(ctx context.Context, key string) error {
	f.mu.Lock()
	f.calls[key]++
	gate := f.gates[key]
	err := f.errs[key]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeSource) Global(ctx context.Context) (domain.RawGlobal, error) {
	if err := f.enter(ctx, "global"); err != nil {
		return domain.RawGlobal{}, err
	}
	return f.global, nil
}

func (f *fakeSource) Countries(ctx context.Context) ([]domain.RawCountry, error) {
	if err := f.enter(ctx, "countries"); err != nil {
		return nil, err
	}
	return f.countries, nil
}

func (f *fakeSource) Country(ctx context.Context, code string) (domain.RawCountry, error) {
	if err := f.enter(ctx, "country:"+code); err != nil {
		return domain.RawCountry{}, err
	}
	for _, c := range f.countries {
		if c.CountryInfo.ISO2 == code {
			c.Cases++
			return c, nil
		}
	}
	return domain.RawCountry{}, errors.New("not found")
}

func (f *fakeSource) History(ctx context.Context, _ int) (domain.RawHistory, error) {
	if err := f.enter(ctx, "history"); err != nil {
		return domain.RawHistory{}, err
	}
	return f.history, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	rankings [][]domain.CountrySummary
	err      error
}

func (p *recordingPublisher) PublishRanking(_ context.Context, ranking []domain.CountrySummary, _ time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rankings = append(p.rankings, ranking)
	return p.err
}

func (p *recordingPublisher) published() [][]domain.CountrySummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]domain.CountrySummary(nil), p.rankings...)
}

type stubGeocoder struct {
	result domain.GeocodingResult
}

func (g stubGeocoder) ForwardGeocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	return g.result, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startTracker runs a tracker until the test ends and returns it once the
// loop is accepting events.
func startTracker(t *testing.T, src Source, opts Options) (*Tracker, *observability.Metrics) {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(fixedNow))
	t.Cleanup(func() { SetClock(nil) })

	if opts.HistoryDays == 0 {
		opts.HistoryDays = 30
	}
	metrics := observability.NewMetricsForTesting()
	tr := New(src, opts, discardLogger(), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	require.Eventually(t, func() bool { return tr.running.Load() }, waitFor, tick)
	return tr, metrics
}

func waitReady(t *testing.T, tr *Tracker) {
	t.Helper()
	require.Eventually(t, func() bool {
		return tr.CheckReadiness(context.Background()) == nil
	}, waitFor, tick)
}

func TestTracker_StartupLoadsEverything(t *testing.T) {
	src := newFakeSource()
	tr, metrics := startTracker(t, src, Options{})
	waitReady(t, tr)

	require.Eventually(t, func() bool {
		d := tr.Snapshot()
		return d.Slot(domain.SlotInfo).State == domain.FetchResolved &&
			d.Slot(domain.SlotHistory).State == domain.FetchResolved
	}, waitFor, tick)

	d := tr.Snapshot()
	assert.Equal(t, domain.Worldwide, d.Info.Scope)
	assert.Equal(t, int64(5000), d.Info.Cases)
	assert.Len(t, d.Countries, 4)

	require.Len(t, d.Ranking, 3)
	assert.Equal(t, "Chile", d.Ranking[0].Name)
	assert.Equal(t, "France", d.Ranking[1].Name)
	assert.Equal(t, "Peru", d.Ranking[2].Name)

	assert.Len(t, d.History.Cases, 3)
	assert.Equal(t, fixedNow, d.Slot(domain.SlotCountries).UpdatedAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchRequests.WithLabelValues("countries", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.CountriesTracked))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TrackerRunning))
}

func TestTracker_NotReadyBeforeCountryList(t *testing.T) {
	src := newFakeSource()
	gate := src.gate("countries")
	tr, _ := startTracker(t, src, Options{})

	require.Error(t, tr.CheckReadiness(context.Background()))

	close(gate)
	waitReady(t, tr)
}

func TestTracker_NotReadyWhenStopped(t *testing.T) {
	tr := New(newFakeSource(), Options{}, discardLogger(), observability.NewMetricsForTesting())
	err := tr.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestTracker_SelectCountryThenDetailResolves(t *testing.T) {
	src := newFakeSource()
	tr, metrics := startTracker(t, src, Options{})
	waitReady(t, tr)

	require.NoError(t, tr.SelectCountry(context.Background(), "fr"))
	assert.Equal(t, "FR", tr.Snapshot().View.SelectedCountryCode)

	require.Eventually(t, func() bool {
		return tr.Snapshot().Info.Scope == "FR"
	}, waitFor, tick)

	d := tr.Snapshot()
	assert.Equal(t, int64(701), d.Info.Cases)
	assert.Equal(t, domain.Coordinates{Lat: 46, Lng: 2}, d.View.MapCenter)
	assert.Equal(t, domain.CountryZoom, d.View.ZoomLevel)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Selections.WithLabelValues("select_country")))
}

func TestTracker_SelectUnknownCountry(t *testing.T) {
	src := newFakeSource()
	tr, _ := startTracker(t, src, Options{})
	waitReady(t, tr)

	err := tr.SelectCountry(context.Background(), "XX")
	require.ErrorIs(t, err, domain.ErrUnknownCountry)
	assert.Equal(t, domain.Worldwide, tr.Snapshot().View.SelectedCountryCode)
}

// A detail result for an earlier selection must not overwrite the worldwide
// summary requested after it.
func TestTracker_StaleDetailDiscardedAfterWorldwide(t *testing.T) {
	src := newFakeSource()
	tr, metrics := startTracker(t, src, Options{})
	waitReady(t, tr)

	gate := src.gate("country:FR")
	ctx := context.Background()
	require.NoError(t, tr.SelectCountry(ctx, "FR"))
	require.NoError(t, tr.SelectCountry(ctx, domain.Worldwide))

	require.Eventually(t, func() bool {
		st := tr.Snapshot().Slot(domain.SlotInfo)
		return st.Kind == domain.FetchGlobal && st.State == domain.FetchResolved
	}, waitFor, tick)

	close(gate)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.StaleResults.WithLabelValues("country")) == 1
	}, waitFor, tick)

	d := tr.Snapshot()
	assert.Equal(t, domain.Worldwide, d.View.SelectedCountryCode)
	assert.Equal(t, domain.Worldwide, d.Info.Scope)
	assert.Equal(t, domain.WorldCenter, d.View.MapCenter)
	assert.Equal(t, domain.WorldZoom, d.View.ZoomLevel)
}

func TestTracker_FetchFailureKeepsLastGoodData(t *testing.T) {
	src := newFakeSource()
	tr, metrics := startTracker(t, src, Options{})
	waitReady(t, tr)
	require.Eventually(t, func() bool {
		return tr.Snapshot().Slot(domain.SlotInfo).State == domain.FetchResolved
	}, waitFor, tick)

	src.failWith("global", errors.New("connection refused"))
	require.NoError(t, tr.SelectCountry(context.Background(), domain.Worldwide))

	require.Eventually(t, func() bool {
		return tr.Snapshot().Slot(domain.SlotInfo).State == domain.FetchFailure
	}, waitFor, tick)

	d := tr.Snapshot()
	assert.Contains(t, d.Slot(domain.SlotInfo).Error, "connection refused")
	assert.Equal(t, int64(5000), d.Info.Cases)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchRequests.WithLabelValues("global", "error")))
	assert.Equal(t, 2, src.callCount("global"), "no retry after failure")
}

func TestTracker_CountryListFailure(t *testing.T) {
	src := newFakeSource()
	src.failWith("countries", errors.New("upstream 503"))
	tr, _ := startTracker(t, src, Options{})

	require.Eventually(t, func() bool {
		return tr.Snapshot().Slot(domain.SlotCountries).State == domain.FetchFailure
	}, waitFor, tick)

	assert.Empty(t, tr.Snapshot().Countries)
	assert.Error(t, tr.CheckReadiness(context.Background()))
}

func TestTracker_SelectMetricAndTheme(t *testing.T) {
	tr, metrics := startTracker(t, newFakeSource(), Options{})
	ctx := context.Background()

	require.NoError(t, tr.SelectMetric(ctx, domain.MetricDeaths))
	assert.Equal(t, domain.MetricDeaths, tr.Snapshot().View.SelectedMetric)

	err := tr.SelectMetric(ctx, domain.MetricType("active"))
	require.ErrorIs(t, err, domain.ErrInvalidMetric)
	assert.Equal(t, domain.MetricDeaths, tr.Snapshot().View.SelectedMetric)

	require.NoError(t, tr.ToggleDarkMode(ctx))
	assert.True(t, tr.Snapshot().View.DarkMode)
	require.NoError(t, tr.ToggleDarkMode(ctx))
	assert.False(t, tr.Snapshot().View.DarkMode)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Selections.WithLabelValues("toggle_dark_mode")))
}

func TestTracker_PublishesRanking(t *testing.T) {
	pub := &recordingPublisher{}
	tr, metrics := startTracker(t, newFakeSource(), Options{Publisher: pub})
	waitReady(t, tr)

	require.Eventually(t, func() bool { return len(pub.published()) == 1 }, waitFor, tick)
	ranking := pub.published()[0]
	require.Len(t, ranking, 3)
	assert.Equal(t, "CL", ranking[0].ISOCode)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.SnapshotsPublished) == 1
	}, waitFor, tick)
}

func TestTracker_PublishErrorCounted(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	tr, metrics := startTracker(t, newFakeSource(), Options{Publisher: pub})
	waitReady(t, tr)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.PublishErrors) == 1
	}, waitFor, tick)
	assert.Zero(t, testutil.ToFloat64(metrics.SnapshotsPublished))
}

func TestTracker_BackfillsMissingCoordinates(t *testing.T) {
	src := newFakeSource()
	src.countries = append(src.countries, rawCountry("Kosovo", "XK", 0, 0, 300))
	geo := stubGeocoder{result: domain.GeocodingResult{Lat: 42.6, Lon: 20.9, FormattedAddress: "Kosovo"}}

	tr, _ := startTracker(t, src, Options{Geocoder: geo})
	waitReady(t, tr)

	kosovo, ok := domain.FindCountry(tr.Snapshot().Countries, "XK")
	require.True(t, ok)
	assert.Equal(t, domain.Coordinates{Lat: 42.6, Lng: 20.9}, kosovo.Coordinates)
}

func TestTracker_SelectionAfterStop(t *testing.T) {
	tr := New(newFakeSource(), Options{HistoryDays: 30}, discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()
	require.Eventually(t, func() bool { return tr.running.Load() }, waitFor, tick)

	cancel()
	require.NoError(t, <-done)

	err := tr.SelectMetric(context.Background(), domain.MetricCases)
	require.ErrorIs(t, err, ErrStopped)
}

func TestTracker_SelectionHonoursCallerContext(t *testing.T) {
	tr := New(newFakeSource(), Options{}, discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tr.ToggleDarkMode(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
