package http

import (
	"errors"
	"net/http"

	tlog "timetrack/internal/log"
	"timetrack/internal/store"
)

const msgEventNotFound = "event not found"

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := s.events.List(ctx)
	if err != nil {
		s.logError(r, "Failed to list events", err, tlog.OpList, nil)
		InternalServerError("failed to load events").Write(w)
		return
	}
	NewJSONResponse().Body(events).Write(w)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	in, err := parseEventInput(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	e, err := s.events.Create(r.Context(), in)
	if err != nil {
		s.logError(r, "Failed to create event", err, tlog.OpCreate, nil)
		InternalServerError("failed to create event").Write(w)
		return
	}
	tlog.NewStructuredLogger(tlog.FromContext(r.Context())).
		LogEventMutation(r.Context(), tlog.OpCreate, int64(e.ID), e.Project, e.Hours, e.Date.String())
	NewJSONResponse().Status(http.StatusCreated).Body(e).Write(w)
}

// handleUpdateEvent replaces every editable field of an event. An unknown id
// is reported before the body is validated.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathEventID(r)
	if !ok {
		NotFoundError(msgEventNotFound).Write(w)
		return
	}
	if _, err := s.events.Get(ctx, id); err != nil {
		s.writeStoreError(w, r, err, tlog.OpRead)
		return
	}
	in, err := parseEventInput(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	e, err := s.events.Update(ctx, id, in)
	if err != nil {
		s.writeStoreError(w, r, err, tlog.OpUpdate)
		return
	}
	tlog.NewStructuredLogger(tlog.FromContext(ctx)).
		LogEventMutation(ctx, tlog.OpUpdate, int64(e.ID), e.Project, e.Hours, e.Date.String())
	NewJSONResponse().Body(e).Write(w)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathEventID(r)
	if !ok {
		NotFoundError(msgEventNotFound).Write(w)
		return
	}
	e, err := s.events.Delete(ctx, id)
	if err != nil {
		s.writeStoreError(w, r, err, tlog.OpDelete)
		return
	}
	tlog.NewStructuredLogger(tlog.FromContext(ctx)).
		LogEventMutation(ctx, tlog.OpDelete, int64(e.ID), e.Project, e.Hours, e.Date.String())
	NewJSONResponse().Body(e).Write(w)
}

// writeStoreError maps store.ErrNotFound to 404 and everything else to 500.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error, op string) {
	if errors.Is(err, store.ErrNotFound) {
		NotFoundError(msgEventNotFound).Write(w)
		return
	}
	s.logError(r, "Event store operation failed", err, op, nil)
	InternalServerError("event store unavailable").Write(w)
}

func (s *Server) logError(r *http.Request, msg string, err error, op string, fields tlog.LogFields) {
	if fields == nil {
		fields = tlog.NewFields()
	}
	fields = fields.WithHTTPRequest(r.Method, r.URL.Path, r.Header.Get("User-Agent"))
	tlog.NewStructuredLogger(tlog.FromContext(r.Context())).LogError(r.Context(), msg, err, op, fields)
}
