package http

import (
	"net/http"

	tlog "timetrack/internal/log"
	"timetrack/internal/services"
)

func (s *Server) handleMonthlyHours(w http.ResponseWriter, r *http.Request) {
	agg, ok := s.aggregates(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(agg.Monthly).Write(w)
}

func (s *Server) handleWeeklyHours(w http.ResponseWriter, r *http.Request) {
	agg, ok := s.aggregates(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(agg.Weekly).Write(w)
}

func (s *Server) aggregates(w http.ResponseWriter, r *http.Request) (services.Aggregates, bool) {
	agg, err := s.events.Aggregates(r.Context())
	if err != nil {
		s.logError(r, "Failed to compute hour totals", err, tlog.OpAggregate, nil)
		InternalServerError("failed to compute hour totals").Write(w)
		return services.Aggregates{}, false
	}
	return agg, true
}
