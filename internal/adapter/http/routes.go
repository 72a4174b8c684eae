package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

func (s *Server) mountRoutes(r chi.Router, rateLimit int) {
	r.Get("/dashboard", s.handleDashboard)
	r.Get("/countries", s.handleCountries)
	r.Get("/table", s.handleTable)
	r.Get("/markers", s.handleMarkers)
	r.Get("/history", s.handleHistory)

	r.Group(func(gr chi.Router) {
		if rateLimit > 0 {
			gr.Use(httprate.Limit(rateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeError(w, http.StatusTooManyRequests, "too many selection requests")
				}),
			))
		}
		gr.Post("/selection/country", s.handleSelectCountry)
		gr.Post("/selection/metric", s.handleSelectMetric)
		gr.Post("/theme/toggle", s.handleToggleTheme)
	})
}
