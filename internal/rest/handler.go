package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meetsync/MeetSync/pkg/models"
	"github.com/meetsync/MeetSync/pkg/pgstore"
)

type ErrorResponse struct {
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error"`
}

func (s *Server) versionHandler(w http.ResponseWriter, _ *http.Request) {
	_, err := fmt.Fprintf(w, "%s\n", s.version)
	if err != nil {
		s.log.Warnf("err during writing to connection: %v", err)
	}
}

func (s *Server) createMeetingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := s.getActor(ctx)
	if !ok || actor.Role != models.RoleManager {
		s.writeResponse(w, http.StatusForbidden, models.ErrPermissionDenied)
		return
	}
	var req models.CreateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.CreateByManager(ctx, actor.ID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusCreated, meeting)
}

func (s *Server) requestMeetingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := s.getActor(ctx)
	if !ok || actor.Role != models.RoleEmployee {
		s.writeResponse(w, http.StatusForbidden, models.ErrPermissionDenied)
		return
	}
	var req models.RequestMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.CreateByEmployee(ctx, actor.ID, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusCreated, meeting)
}

func (s *Server) getMeetingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := s.getActor(ctx)
	if !ok {
		s.writeResponse(w, http.StatusForbidden, models.ErrPermissionDenied)
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.GetMeeting(ctx, actor, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

func (s *Server) listMeetingsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := s.getActor(ctx)
	if !ok {
		s.writeResponse(w, http.StatusForbidden, models.ErrPermissionDenied)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	list, err := s.app.ListMeetings(ctx, actor, filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusOK, list)
}

func (s *Server) updateStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := s.getActor(ctx)
	if !ok {
		s.writeResponse(w, http.StatusForbidden, models.ErrPermissionDenied)
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.UpdateStatus(ctx, actor, id, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

func (s *Server) cancelMeetingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := s.getActor(ctx)
	if !ok {
		s.writeResponse(w, http.StatusForbidden, models.ErrPermissionDenied)
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.Cancel(ctx, actor, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

func (s *Server) selectDateHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := s.getActor(ctx)
	if !ok || actor.Role != models.RoleManager {
		s.writeResponse(w, http.StatusForbidden, models.ErrPermissionDenied)
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	var req models.SelectDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	meeting, err := s.app.SelectDate(ctx, actor.ID, id, req.Date)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusOK, meeting)
}

func (s *Server) availabilityHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := s.getActor(ctx); !ok {
		s.writeResponse(w, http.StatusForbidden, models.ErrPermissionDenied)
		return
	}
	managerID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, err)
		return
	}
	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, fmt.Errorf("err parsing date: %w", err))
		return
	}
	clock, err := time.Parse("15:04", r.URL.Query().Get("time"))
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest, fmt.Errorf("err parsing time: %w", err))
		return
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
	result, err := s.app.CheckAvailability(ctx, managerID, at)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, http.StatusOK, result)
}

func parseFilter(r *http.Request) (models.MeetingFilter, error) {
	q := r.URL.Query()
	filter := models.MeetingFilter{
		Search: q.Get("search"),
		Page:   1,
		Limit:  10,
	}
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return models.MeetingFilter{}, err
		}
		filter.Status = &status
	}
	if raw := q.Get("date_from"); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			return models.MeetingFilter{}, models.NewValidationError("bad date_from %q", raw)
		}
		filter.DateFrom = &from
	}
	if raw := q.Get("date_to"); raw != "" {
		to, err := parseDate(raw)
		if err != nil {
			return models.MeetingFilter{}, models.NewValidationError("bad date_to %q", raw)
		}
		filter.DateTo = &to
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return models.MeetingFilter{}, models.NewValidationError("bad page %q", raw)
		}
		filter.Page = page
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return models.MeetingFilter{}, models.NewValidationError("bad limit %q", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	var terr *models.TransitionError
	switch {
	case errors.Is(err, pgstore.ErrMeetingNotFound),
		errors.Is(err, pgstore.ErrManagerNotFound),
		errors.Is(err, pgstore.ErrEmployeeNotFound):
		s.writeKindResponse(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, models.ErrPermissionDenied):
		s.writeKindResponse(w, http.StatusForbidden, "permission_denied", err)
	case errors.Is(err, pgstore.ErrConflict):
		s.writeKindResponse(w, http.StatusConflict, "conflict", err)
	case errors.As(err, &verr):
		s.writeKindResponse(w, http.StatusUnprocessableEntity, "validation_error", err)
	case errors.As(err, &terr):
		s.writeKindResponse(w, http.StatusBadRequest, "invalid_transition", err)
	default:
		s.log.Warnf("err during handling request: %v", err)
		s.writeKindResponse(w, http.StatusInternalServerError, "internal", err)
	}
}

func (s *Server) writeKindResponse(w http.ResponseWriter, status int, kind string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(ErrorResponse{Kind: kind, Error: err.Error()}); encErr != nil {
		s.log.Warnf("err during encoding error: %v", encErr)
	}
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if x, ok := data.(error); ok {
		if err := json.NewEncoder(w).Encode(ErrorResponse{Error: x.Error()}); err != nil {
			s.log.Warnf("err during encoding error: %v", err)
		}
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warnf("err during encoding responce: %v", err)
	}
}
