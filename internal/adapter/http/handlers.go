package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/covid-tracker-service/internal/domain"
	"github.com/couchcryptid/covid-tracker-service/internal/tracker"
)

const maxBodyBytes = 4 << 10

type selectCountryRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

type selectMetricRequest struct {
	Metric string `json:"metric" validate:"required,oneof=cases recovered deaths"`
}

type dashboardResponse struct {
	View       domain.ViewState              `json:"view"`
	Info       domain.GlobalSummary          `json:"info"`
	InfoBoxes  []domain.InfoBox              `json:"infoBoxes"`
	GraphTitle string                        `json:"graphTitle"`
	Status     map[string]domain.FetchStatus `json:"status"`
	UpdatedAt  *time.Time                    `json:"updatedAt"`
}

type historyResponse struct {
	Title  string              `json:"title"`
	Metric domain.MetricType   `json:"metric"`
	Points []domain.ChartPoint `json:"points"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func newDashboardResponse(d domain.Dashboard) dashboardResponse {
	resp := dashboardResponse{
		View:       d.View,
		Info:       d.Info,
		InfoBoxes:  domain.InfoBoxes(d.Info, d.View.SelectedMetric),
		GraphTitle: domain.GraphTitle(d.View.SelectedMetric),
		Status:     d.SlotStatuses(),
	}
	if !d.UpdatedAt.IsZero() {
		at := d.UpdatedAt
		resp.UpdatedAt = &at
	}
	return resp
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newDashboardResponse(s.tracker.Snapshot()))
}

func (s *Server) handleCountries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.CountryOptions(s.tracker.Snapshot().Countries))
}

func (s *Server) handleTable(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.TableRows(s.tracker.Snapshot().Ranking))
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	d := s.tracker.Snapshot()
	metric, err := metricParam(r, d.View.SelectedMetric)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, domain.MapMarkers(d.Countries, metric))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	d := s.tracker.Snapshot()
	metric, err := metricParam(r, d.View.SelectedMetric)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Title:  domain.GraphTitle(metric),
		Metric: metric,
		Points: domain.DailySeries(d.History, metric),
	})
}

func (s *Server) handleSelectCountry(w http.ResponseWriter, r *http.Request) {
	var req selectCountryRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.tracker.SelectCountry(r.Context(), req.Code); err != nil {
		s.writeSelectionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(s.tracker.Snapshot()))
}

func (s *Server) handleSelectMetric(w http.ResponseWriter, r *http.Request) {
	var req selectMetricRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.tracker.SelectMetric(r.Context(), domain.MetricType(req.Metric)); err != nil {
		s.writeSelectionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(s.tracker.Snapshot()))
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.ToggleDarkMode(r.Context()); err != nil {
		s.writeSelectionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(s.tracker.Snapshot()))
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, err.Error())
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = fieldMessage(fe)
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}

func (s *Server) writeSelectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownCountry):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidMetric):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tracker.ErrStopped),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "dashboard unavailable")
	default:
		s.logger.Error("selection failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func metricParam(r *http.Request, fallback domain.MetricType) (domain.MetricType, error) {
	raw := r.URL.Query().Get("metric")
	if raw == "" {
		return fallback, nil
	}
	return domain.ParseMetricType(raw)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
