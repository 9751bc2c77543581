// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/okian/squad/internal/adapters/repository"
	service "github.com/okian/squad/internal/app"
	"github.com/okian/squad/internal/domain/assignment"
	"github.com/okian/squad/internal/domain/completion"
	"github.com/okian/squad/internal/domain/model"
)

// Dependencies required by HTTP handlers. The service satisfies it; tests
// may substitute their own implementation.
type Dependencies interface {
	RegisterActivity(ctx context.Context, name, category string) (model.Activity, error)
	ListActivities(ctx context.Context) ([]model.Activity, error)

	RegisterParticipant(ctx context.Context, in service.ParticipantInput) (*model.Participant, error)
	ListParticipants(ctx context.Context) ([]*model.Participant, error)
	Assess(ctx context.Context, participantID, activityID uuid.UUID, level int) (*model.Participant, error)

	GenerateGroups(ctx context.Context, req service.GroupRequest) ([]*model.Group, error)
	GenerateMatches(ctx context.Context, req service.GroupRequest) ([]model.Match, error)
	CompleteGroup(ctx context.Context, req service.CompletionRequest) (service.CompletionResult, error)

	ImportRoster(ctx context.Context, r io.Reader) (participants, activities int, err error)
	ExportRoster(ctx context.Context, w io.Writer) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	activitiesHandler   *ActivitiesHandler
	participantsHandler *ParticipantsHandler
	groupsHandler       *GroupsHandler
	rosterHandler       *RosterHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(statsProvider),
		activitiesHandler:   NewActivitiesHandler(deps),
		participantsHandler: NewParticipantsHandler(deps),
		groupsHandler:       NewGroupsHandler(deps),
		rosterHandler:       NewRosterHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/activities", MetricsMiddleware(s.activitiesHandler.Handle, "activities"))
	mux.HandleFunc("/participants", MetricsMiddleware(s.participantsHandler.Handle, "participants"))
	mux.HandleFunc("/participants/{id}/ratings", MetricsMiddleware(s.participantsHandler.HandleRate, "ratings"))
	mux.HandleFunc("/groups", MetricsMiddleware(s.groupsHandler.HandleAssign, "groups"))
	mux.HandleFunc("/groups/complete", MetricsMiddleware(s.groupsHandler.HandleComplete, "complete"))
	mux.HandleFunc("/matches", MetricsMiddleware(s.groupsHandler.HandleMatches, "matches"))
	mux.HandleFunc("/roster", MetricsMiddleware(s.rosterHandler.Handle, "roster"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates a service failure into a status and code.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	if code, ok := assignment.CodeOf(err); ok {
		return http.StatusUnprocessableEntity, code.String()
	}
	if code, ok := completion.CodeOf(err); ok {
		return http.StatusUnprocessableEntity, code.String()
	}
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(op string, r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
