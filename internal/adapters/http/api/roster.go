package api

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	service "github.com/okian/squad/internal/app"
	"github.com/okian/squad/internal/domain/model"
)

// ActivityDependencies defines the operations behind /activities.
type ActivityDependencies interface {
	RegisterActivity(ctx context.Context, name, category string) (model.Activity, error)
	ListActivities(ctx context.Context) ([]model.Activity, error)
}

// ActivitiesHandler handles activity requests.
type ActivitiesHandler struct {
	deps ActivityDependencies
}

// NewActivitiesHandler creates a new activities handler.
func NewActivitiesHandler(deps ActivityDependencies) *ActivitiesHandler {
	return &ActivitiesHandler{deps: deps}
}

// Handle serves GET and POST /activities.
func (h *ActivitiesHandler) Handle(w http.ResponseWriter, r *http.Request) {
	const op = "api.activities"
	switch r.Method {
	case http.MethodGet:
		activities, err := h.deps.ListActivities(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]activityResponse, 0, len(activities))
		for _, a := range activities {
			out = append(out, toActivity(a))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req activityRequest
		if err := decode(op, r, &req); err != nil {
			writeServiceError(w, err)
			return
		}
		a, err := h.deps.RegisterActivity(r.Context(), req.Name, req.Category)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toActivity(a))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
	}
}

// ParticipantDependencies defines the operations behind /participants.
type ParticipantDependencies interface {
	RegisterParticipant(ctx context.Context, in service.ParticipantInput) (*model.Participant, error)
	ListParticipants(ctx context.Context) ([]*model.Participant, error)
	Assess(ctx context.Context, participantID, activityID uuid.UUID, level int) (*model.Participant, error)
}

// ParticipantsHandler handles participant and rating requests.
type ParticipantsHandler struct {
	deps ParticipantDependencies
}

// NewParticipantsHandler creates a new participants handler.
func NewParticipantsHandler(deps ParticipantDependencies) *ParticipantsHandler {
	return &ParticipantsHandler{deps: deps}
}

// Handle serves GET and POST /participants.
func (h *ParticipantsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	const op = "api.participants"
	switch r.Method {
	case http.MethodGet:
		participants, err := h.deps.ListParticipants(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]participantResponse, 0, len(participants))
		for _, p := range participants {
			out = append(out, toParticipant(p))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req participantRequest
		if err := decode(op, r, &req); err != nil {
			writeServiceError(w, err)
			return
		}
		p, err := h.deps.RegisterParticipant(r.Context(), service.ParticipantInput{
			Tag:       req.Tag,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toParticipant(p))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
	}
}

// HandleRate serves POST /participants/{id}/ratings.
func (h *ParticipantsHandler) HandleRate(w http.ResponseWriter, r *http.Request) {
	const op = "api.rate"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req ratingRequest
	if err := decode(op, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Level == nil {
		writeServiceError(w, WrapKind(op, ErrBadRequest, errMissing("level")))
		return
	}
	p, err := h.deps.Assess(r.Context(), id, req.ActivityID, *req.Level)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toParticipant(p))
}

// RosterDependencies defines the operations behind /roster.
type RosterDependencies interface {
	ImportRoster(ctx context.Context, r io.Reader) (participants, activities int, err error)
	ExportRoster(ctx context.Context, w io.Writer) error
}

// RosterHandler handles whole-roster import and export.
type RosterHandler struct {
	deps RosterDependencies
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(deps RosterDependencies) *RosterHandler {
	return &RosterHandler{deps: deps}
}

// Handle serves GET and PUT /roster.
func (h *RosterHandler) Handle(w http.ResponseWriter, r *http.Request) {
	const op = "api.roster"
	switch r.Method {
	case http.MethodGet:
		var buf bytes.Buffer
		if err := h.deps.ExportRoster(r.Context(), &buf); err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	case http.MethodPut:
		participants, activities, err := h.deps.ImportRoster(r.Context(), r.Body)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, importResponse{Participants: participants, Activities: activities})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
	}
}
