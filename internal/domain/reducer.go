package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownCountry is returned when a selected code is not in the
	// last-fetched country list.
	ErrUnknownCountry = errors.New("unknown country code")

	// ErrStaleResult is returned for a fetch result that a newer request for
	// the same slot has superseded. State is left unchanged.
	ErrStaleResult = errors.New("stale fetch result")
)

// Event is an input to Reduce.
type Event interface {
	EventName() string
}

// Startup issues the initial global, country list, and history fetches.
type Startup struct{}

// SelectCountry selects Worldwide or an ISO code from the country list.
type SelectCountry struct{ Code string }

// SelectMetric switches the metric shown by counters, map, and graph.
type SelectMetric struct{ Metric MetricType }

// ToggleDarkMode flips the theme.
type ToggleDarkMode struct{}

// GlobalLoaded carries a resolved worldwide fetch.
type GlobalLoaded struct {
	Seq     uint64
	Summary GlobalSummary
	At      time.Time
}

// CountriesLoaded carries a resolved, normalized country list.
type CountriesLoaded struct {
	Seq       uint64
	Countries []CountrySummary
	At        time.Time
}

// CountryLoaded carries a resolved single-country fetch.
type CountryLoaded struct {
	Seq     uint64
	Country CountrySummary
	At      time.Time
}

// HistoryLoaded carries a resolved historical fetch.
type HistoryLoaded struct {
	Seq     uint64
	History History
	At      time.Time
}

// FetchFailed carries the failure of any fetch.
type FetchFailed struct {
	Kind FetchKind
	Seq  uint64
	Err  error
	At   time.Time
}

func (Startup) EventName() string         { return "startup" }
func (SelectCountry) EventName() string   { return "select_country" }
func (SelectMetric) EventName() string    { return "select_metric" }
func (ToggleDarkMode) EventName() string  { return "toggle_dark_mode" }
func (GlobalLoaded) EventName() string    { return "global_loaded" }
func (CountriesLoaded) EventName() string { return "countries_loaded" }
func (CountryLoaded) EventName() string   { return "country_loaded" }
func (HistoryLoaded) EventName() string   { return "history_loaded" }
func (FetchFailed) EventName() string     { return "fetch_failed" }

// Command is a side effect requested by Reduce.
type Command interface {
	isCommand()
}

// FetchCommand asks for an upstream request. Code is set for country details.
type FetchCommand struct {
	Kind FetchKind
	Seq  uint64
	Code string
}

// PublishCommand asks for a freshly ranked list to be published downstream.
type PublishCommand struct {
	Ranking   []CountrySummary
	FetchedAt time.Time
}

func (FetchCommand) isCommand()   {}
func (PublishCommand) isCommand() {}

// Reduce applies an event to the dashboard and returns the next state plus
// the commands to run. On error the returned state equals d.
func Reduce(d Dashboard, ev Event) (Dashboard, []Command, error) {
	switch e := ev.(type) {
	case Startup:
		var global, list, history FetchCommand
		d, global = d.issue(FetchGlobal, "")
		d, list = d.issue(FetchCountryList, "")
		d, history = d.issue(FetchHistory, "")
		return d, []Command{global, list, history}, nil

	case SelectCountry:
		return selectCountry(d, e.Code)

	case SelectMetric:
		m, err := ParseMetricType(string(e.Metric))
		if err != nil {
			return d, nil, err
		}
		d.View.SelectedMetric = m
		return d, nil, nil

	case ToggleDarkMode:
		d.View.DarkMode = !d.View.DarkMode
		return d, nil, nil

	case GlobalLoaded:
		if err := d.accept(FetchGlobal, e.Seq); err != nil {
			return d, nil, err
		}
		d.Info = e.Summary
		d.View = d.View.withViewport(WorldCenter, WorldZoom)
		d = d.resolve(SlotInfo, e.At)
		return d, nil, nil

	case CountryLoaded:
		if err := d.accept(FetchCountryDetail, e.Seq); err != nil {
			return d, nil, err
		}
		c := e.Country
		d.Info = GlobalSummary{Scope: c.ISOCode, Metrics: c.Metrics, UpdatedAt: c.UpdatedAt}
		d.View = d.View.withViewport(c.Coordinates, CountryZoom)
		d = d.resolve(SlotInfo, e.At)
		return d, nil, nil

	case CountriesLoaded:
		if err := d.accept(FetchCountryList, e.Seq); err != nil {
			return d, nil, err
		}
		d.Countries = e.Countries
		d.Ranking = RankByActiveCases(e.Countries)
		d = d.resolve(SlotCountries, e.At)

		cmds := []Command{PublishCommand{Ranking: d.Ranking, FetchedAt: e.At}}
		if code := d.View.SelectedCountryCode; code != Worldwide {
			if _, ok := FindCountry(d.Countries, code); !ok {
				// Selection vanished from the list: fall back to worldwide.
				var global FetchCommand
				d.View.SelectedCountryCode = Worldwide
				d.View = d.View.withViewport(WorldCenter, WorldZoom)
				d, global = d.issue(FetchGlobal, "")
				cmds = append(cmds, global)
			}
		}
		return d, cmds, nil

	case HistoryLoaded:
		if err := d.accept(FetchHistory, e.Seq); err != nil {
			return d, nil, err
		}
		d.History = e.History
		d = d.resolve(SlotHistory, e.At)
		return d, nil, nil

	case FetchFailed:
		if err := d.accept(e.Kind, e.Seq); err != nil {
			return d, nil, err
		}
		slot := SlotFor(e.Kind)
		st := d.Slots[slot]
		st.State = FetchFailure
		st.Error = "fetch failed"
		if e.Err != nil {
			st.Error = e.Err.Error()
		}
		st.UpdatedAt = e.At
		d.Slots[slot] = st
		return d, nil, nil
	}

	return d, nil, fmt.Errorf("unhandled event %T", ev)
}

func selectCountry(d Dashboard, code string) (Dashboard, []Command, error) {
	code = strings.TrimSpace(code)

	if strings.EqualFold(code, Worldwide) {
		var global FetchCommand
		d.View.SelectedCountryCode = Worldwide
		d.View = d.View.withViewport(WorldCenter, WorldZoom)
		d, global = d.issue(FetchGlobal, "")
		return d, []Command{global}, nil
	}

	c, ok := FindCountry(d.Countries, code)
	if !ok {
		return d, nil, fmt.Errorf("%w: %q", ErrUnknownCountry, code)
	}

	var detail FetchCommand
	d.View.SelectedCountryCode = c.ISOCode
	d, detail = d.issue(FetchCountryDetail, c.ISOCode)
	return d, []Command{detail}, nil
}

// issue allocates the next sequence number for kind's slot and marks it pending.
func (d Dashboard) issue(kind FetchKind, code string) (Dashboard, FetchCommand) {
	d.NextSeq++
	slot := SlotFor(kind)
	d.Slots[slot] = FetchStatus{
		Kind:      kind,
		State:     FetchPending,
		Seq:       d.NextSeq,
		UpdatedAt: d.Slots[slot].UpdatedAt,
	}
	return d, FetchCommand{Kind: kind, Seq: d.NextSeq, Code: code}
}

// accept reports whether a result for kind/seq is still the latest request.
func (d Dashboard) accept(kind FetchKind, seq uint64) error {
	st := d.Slots[SlotFor(kind)]
	if st.Seq != seq || st.Kind != kind || st.State != FetchPending {
		return fmt.Errorf("%w: %s seq %d (latest %s seq %d)", ErrStaleResult, kind, seq, st.Kind, st.Seq)
	}
	return nil
}

func (d Dashboard) resolve(slot Slot, at time.Time) Dashboard {
	st := d.Slots[slot]
	st.State = FetchResolved
	st.Error = ""
	st.UpdatedAt = at
	d.Slots[slot] = st
	d.UpdatedAt = at
	return d
}
