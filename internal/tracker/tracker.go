package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/covid-tracker-service/internal/domain"
	"github.com/couchcryptid/covid-tracker-service/internal/observability"
)

// ErrStopped is returned by selection calls once the event loop has exited.
var ErrStopped = errors.New("tracker stopped")

// Source fetches raw statistics from the upstream API.
type Source interface {
	Global(ctx context.Context) (domain.RawGlobal, error)
	Countries(ctx context.Context) ([]domain.RawCountry, error)
	Country(ctx context.Context, code string) (domain.RawCountry, error)
	History(ctx context.Context, days int) (domain.RawHistory, error)
}

// Publisher receives every freshly ranked country list.
type Publisher interface {
	PublishRanking(ctx context.Context, ranking []domain.CountrySummary, fetchedAt time.Time) error
}

// Options holds the optional collaborators of a Tracker.
type Options struct {
	Geocoder    domain.Geocoder // nil disables coordinate backfill
	Publisher   Publisher       // nil disables the snapshot feed
	HistoryDays int
}

type request struct {
	event domain.Event
	done  chan error
}

// Tracker owns the dashboard state. A single event loop applies user
// selections and fetch results through domain.Reduce; fetches run as
// goroutines that post their results back to the loop.
type Tracker struct {
	source      Source
	geocoder    domain.Geocoder
	publisher   Publisher
	historyDays int
	logger      *slog.Logger
	metrics     *observability.Metrics

	requests chan request
	results  chan domain.Event
	stopped  chan struct{}

	state   atomic.Pointer[domain.Dashboard]
	running atomic.Bool
	ready   atomic.Bool
	inner   sync.WaitGroup
}

// New creates a Tracker holding the empty startup dashboard.
func New(source Source, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Tracker {
	t := &Tracker{
		source:      source,
		geocoder:    opts.Geocoder,
		publisher:   opts.Publisher,
		historyDays: opts.HistoryDays,
		logger:      logger,
		metrics:     metrics,
		requests:    make(chan request),
		results:     make(chan domain.Event),
		stopped:     make(chan struct{}),
	}
	d := domain.NewDashboard()
	t.state.Store(&d)
	return t
}

// Snapshot returns the current dashboard. The value is never mutated after
// publication, so callers may read it freely.
func (t *Tracker) Snapshot() domain.Dashboard {
	return *t.state.Load()
}

// CheckReadiness returns nil once the loop is running and the country list
// has resolved at least once.
func (t *Tracker) CheckReadiness(_ context.Context) error {
	if !t.running.Load() {
		return errors.New("tracker event loop is not running")
	}
	if !t.ready.Load() {
		return errors.New("country list has not loaded yet")
	}
	return nil
}

// SelectCountry selects Worldwide or an ISO code from the loaded list.
func (t *Tracker) SelectCountry(ctx context.Context, code string) error {
	return t.dispatch(ctx, domain.SelectCountry{Code: code})
}

// SelectMetric switches the displayed metric.
func (t *Tracker) SelectMetric(ctx context.Context, metric domain.MetricType) error {
	return t.dispatch(ctx, domain.SelectMetric{Metric: metric})
}

// ToggleDarkMode flips the theme.
func (t *Tracker) ToggleDarkMode(ctx context.Context) error {
	return t.dispatch(ctx, domain.ToggleDarkMode{})
}

// dispatch hands an event to the loop and waits until it has been applied.
// Fetches the event triggers keep running after dispatch returns.
func (t *Tracker) dispatch(ctx context.Context, ev domain.Event) error {
	req := request{event: ev, done: make(chan error, 1)}
	select {
	case t.requests <- req:
	case <-t.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run issues the startup fetches and processes events until ctx is
// cancelled. Results still in flight at shutdown are dropped.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("tracker started", "history_days", t.historyDays)
	t.running.Store(true)
	t.metrics.TrackerRunning.Set(1)
	defer func() {
		t.running.Store(false)
		t.metrics.TrackerRunning.Set(0)
		close(t.stopped)
		t.inner.Wait()
	}()

	if err := t.apply(ctx, domain.Startup{}); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tracker stopping", "reason", ctx.Err())
			return nil
		case req := <-t.requests:
			req.done <- t.apply(ctx, req.event)
		case ev := <-t.results:
			err := t.apply(ctx, ev)
			switch {
			case errors.Is(err, domain.ErrStaleResult):
				t.logger.Debug("discarded stale fetch result", "event", ev.EventName(), "error", err)
			case err != nil:
				t.logger.Error("apply fetch result failed", "event", ev.EventName(), "error", err)
			}
		}
	}
}

// apply runs the reducer, publishes the new snapshot, and executes the
// resulting commands. Only the loop goroutine calls it.
func (t *Tracker) apply(ctx context.Context, ev domain.Event) error {
	next, cmds, err := domain.Reduce(t.Snapshot(), ev)
	if err != nil {
		if errors.Is(err, domain.ErrStaleResult) {
			t.metrics.StaleResults.WithLabelValues(string(resultKind(ev))).Inc()
		}
		return err
	}
	t.state.Store(&next)
	t.observe(ev, next)

	for _, cmd := range cmds {
		t.execute(ctx, cmd)
	}
	return nil
}

func (t *Tracker) observe(ev domain.Event, d domain.Dashboard) {
	switch ev.(type) {
	case domain.SelectCountry, domain.SelectMetric, domain.ToggleDarkMode:
		t.metrics.Selections.WithLabelValues(ev.EventName()).Inc()
		t.logger.Info("selection applied",
			"event", ev.EventName(),
			"country", d.View.SelectedCountryCode,
			"metric", d.View.SelectedMetric,
			"dark_mode", d.View.DarkMode,
		)
	case domain.CountriesLoaded:
		t.metrics.CountriesTracked.Set(float64(len(d.Ranking)))
		t.ready.Store(true)
	}
}

func (t *Tracker) execute(ctx context.Context, cmd domain.Command) {
	switch c := cmd.(type) {
	case domain.FetchCommand:
		t.inner.Add(1)
		go func() {
			defer t.inner.Done()
			t.fetch(ctx, c)
		}()
	case domain.PublishCommand:
		if t.publisher == nil {
			return
		}
		t.inner.Add(1)
		go func() {
			defer t.inner.Done()
			t.publish(ctx, c)
		}()
	}
}

// fetch performs one upstream request and posts the tagged result.
func (t *Tracker) fetch(ctx context.Context, cmd domain.FetchCommand) {
	start := time.Now()
	ev, err := t.load(ctx, cmd)
	t.metrics.FetchDuration.WithLabelValues(string(cmd.Kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		t.metrics.FetchRequests.WithLabelValues(string(cmd.Kind), "error").Inc()
		t.logger.Warn("fetch failed",
			"kind", cmd.Kind,
			"seq", cmd.Seq,
			"code", cmd.Code,
			"error", err,
		)
		ev = domain.FetchFailed{Kind: cmd.Kind, Seq: cmd.Seq, Err: err, At: clock.Now()}
	} else {
		t.metrics.FetchRequests.WithLabelValues(string(cmd.Kind), "success").Inc()
	}

	select {
	case t.results <- ev:
	case <-ctx.Done():
	}
}

func (t *Tracker) load(ctx context.Context, cmd domain.FetchCommand) (domain.Event, error) {
	switch cmd.Kind {
	case domain.FetchGlobal:
		raw, err := t.source.Global(ctx)
		if err != nil {
			return nil, err
		}
		return domain.GlobalLoaded{Seq: cmd.Seq, Summary: domain.NormalizeGlobal(raw), At: clock.Now()}, nil

	case domain.FetchCountryList:
		raw, err := t.source.Countries(ctx)
		if err != nil {
			return nil, err
		}
		countries := domain.BackfillCoordinates(ctx, domain.Normalize(raw), t.geocoder, t.logger)
		return domain.CountriesLoaded{Seq: cmd.Seq, Countries: countries, At: clock.Now()}, nil

	case domain.FetchCountryDetail:
		raw, err := t.source.Country(ctx, cmd.Code)
		if err != nil {
			return nil, err
		}
		country, err := domain.NormalizeCountry(raw)
		if err != nil {
			return nil, fmt.Errorf("country %s: %w", cmd.Code, err)
		}
		if country.Coordinates.IsZero() {
			country = domain.BackfillCoordinates(ctx, []domain.CountrySummary{country}, t.geocoder, t.logger)[0]
		}
		return domain.CountryLoaded{Seq: cmd.Seq, Country: country, At: clock.Now()}, nil

	case domain.FetchHistory:
		raw, err := t.source.History(ctx, t.historyDays)
		if err != nil {
			return nil, err
		}
		history, err := domain.ParseHistory(raw)
		if err != nil {
			return nil, fmt.Errorf("parse history: %w", err)
		}
		return domain.HistoryLoaded{Seq: cmd.Seq, History: history, At: clock.Now()}, nil
	}
	return nil, fmt.Errorf("unknown fetch kind %q", cmd.Kind)
}

func (t *Tracker) publish(ctx context.Context, cmd domain.PublishCommand) {
	if err := t.publisher.PublishRanking(ctx, cmd.Ranking, cmd.FetchedAt); err != nil {
		if ctx.Err() != nil {
			return
		}
		t.metrics.PublishErrors.Inc()
		t.logger.Error("publish ranking failed", "error", err, "countries", len(cmd.Ranking))
		return
	}
	t.metrics.SnapshotsPublished.Inc()
}

// resultKind returns the fetch kind a result event answers.
func resultKind(ev domain.Event) domain.FetchKind {
	switch e := ev.(type) {
	case domain.GlobalLoaded:
		return domain.FetchGlobal
	case domain.CountriesLoaded:
		return domain.FetchCountryList
	case domain.CountryLoaded:
		return domain.FetchCountryDetail
	case domain.HistoryLoaded:
		return domain.FetchHistory
	case domain.FetchFailed:
		return e.Kind
	}
	return ""
}
