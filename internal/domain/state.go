package domain

import "time"

// Default map viewports.
var WorldCenter = Coordinates{Lat: 34.80746, Lng: -40.4796}

const (
	WorldZoom   = 3
	CountryZoom = 4
)

// ViewState is what the dashboard currently displays: selection, map
// viewport, and theme.
type ViewState struct {
	SelectedCountryCode string      `json:"selectedCountryCode"`
	MapCenter           Coordinates `json:"mapCenter"`
	ZoomLevel           int         `json:"zoomLevel"`
	SelectedMetric      MetricType  `json:"selectedMetric"`
	DarkMode            bool        `json:"darkMode"`
}

// InitialViewState is the state before any fetch or interaction.
func InitialViewState() ViewState {
	return ViewState{
		SelectedCountryCode: Worldwide,
		MapCenter:           WorldCenter,
		ZoomLevel:           WorldZoom,
		SelectedMetric:      MetricCases,
	}
}

// withViewport sets center and zoom together; they never change separately.
func (v ViewState) withViewport(center Coordinates, zoom int) ViewState {
	v.MapCenter = center
	v.ZoomLevel = zoom
	return v
}

// FetchKind identifies an upstream request.
type FetchKind string

const (
	FetchGlobal        FetchKind = "global"
	FetchCountryList   FetchKind = "countries"
	FetchCountryDetail FetchKind = "country"
	FetchHistory       FetchKind = "history"
)

// Slot is a piece of state written by one or more fetch kinds. Global and
// country-detail fetches share SlotInfo, so a newer selection supersedes an
// older in-flight one regardless of kind.
type Slot int

const (
	SlotInfo Slot = iota
	SlotCountries
	SlotHistory
	slotCount
)

func (s Slot) String() string {
	switch s {
	case SlotInfo:
		return "info"
	case SlotCountries:
		return "countries"
	case SlotHistory:
		return "history"
	default:
		return "unknown"
	}
}

// SlotFor maps a fetch kind to the state slot it writes.
func SlotFor(kind FetchKind) Slot {
	switch kind {
	case FetchCountryList:
		return SlotCountries
	case FetchHistory:
		return SlotHistory
	default:
		return SlotInfo
	}
}

// FetchState is the lifecycle of the latest request for a slot.
type FetchState string

const (
	FetchIdle     FetchState = "idle"
	FetchPending  FetchState = "pending"
	FetchResolved FetchState = "resolved"
	FetchFailure  FetchState = "failed"
)

// FetchStatus describes the latest request issued for a slot. Error holds the
// failure reason of that request; the slot's data is the last good value.
type FetchStatus struct {
	Kind      FetchKind  `json:"kind,omitempty"`
	State     FetchState `json:"state"`
	Seq       uint64     `json:"seq"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Dashboard is the full application state. Values are replaced by Reduce and
// never mutated in place, so slices may be shared between snapshots.
type Dashboard struct {
	View      ViewState
	Info      GlobalSummary
	Countries []CountrySummary
	Ranking   []CountrySummary
	History   History
	Slots     [slotCount]FetchStatus
	NextSeq   uint64
	UpdatedAt time.Time
}

// NewDashboard returns the empty startup state.
func NewDashboard() Dashboard {
	d := Dashboard{
		View: InitialViewState(),
		Info: GlobalSummary{Scope: Worldwide},
	}
	for i := range d.Slots {
		d.Slots[i] = FetchStatus{State: FetchIdle}
	}
	return d
}

// Slot returns the status of a slot.
func (d Dashboard) Slot(s Slot) FetchStatus {
	if s < 0 || s >= slotCount {
		return FetchStatus{State: FetchIdle}
	}
	return d.Slots[s]
}

// SlotStatuses returns every slot keyed by name.
func (d Dashboard) SlotStatuses() map[string]FetchStatus {
	out := make(map[string]FetchStatus, slotCount)
	for s := SlotInfo; s < slotCount; s++ {
		out[s.String()] = d.Slots[s]
	}
	return out
}
