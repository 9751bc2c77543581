package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	service "github.com/okian/squad/internal/app"
	"github.com/okian/squad/internal/domain/model"
)

// GroupDependencies defines the balancing operations.
type GroupDependencies interface {
	GenerateGroups(ctx context.Context, req service.GroupRequest) ([]*model.Group, error)
	GenerateMatches(ctx context.Context, req service.GroupRequest) ([]model.Match, error)
	CompleteGroup(ctx context.Context, req service.CompletionRequest) (service.CompletionResult, error)
}

// GroupsHandler handles assignment, completion and match requests.
type GroupsHandler struct {
	deps GroupDependencies
}

// NewGroupsHandler creates a new groups handler.
func NewGroupsHandler(deps GroupDependencies) *GroupsHandler {
	return &GroupsHandler{deps: deps}
}

func (req groupRequest) validate() error {
	switch {
	case req.ActivityID == uuid.Nil:
		return errMissing("activity_id")
	case req.Size == 0:
		return errMissing("size")
	case req.Size < 0:
		return errNotPositive("size")
	}
	return nil
}

func (req groupRequest) toService() service.GroupRequest {
	return service.GroupRequest{
		ActivityID:     req.ActivityID,
		ParticipantIDs: req.ParticipantIDs,
		Size:           req.Size,
	}
}

// readGroupRequest decodes and checks a POST body shared by /groups and /matches.
func readGroupRequest(op string, w http.ResponseWriter, r *http.Request) (groupRequest, bool) {
	var req groupRequest
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
		return req, false
	}
	if err := decode(op, r, &req); err != nil {
		writeServiceError(w, err)
		return req, false
	}
	if err := req.validate(); err != nil {
		writeServiceError(w, WrapKind(op, ErrBadRequest, err))
		return req, false
	}
	return req, true
}

// HandleAssign handles POST /groups requests.
func (h *GroupsHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	req, ok := readGroupRequest("api.groups", w, r)
	if !ok {
		return
	}
	groups, err := h.deps.GenerateGroups(r.Context(), req.toService())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroups(groups))
}

// HandleMatches handles POST /matches requests.
func (h *GroupsHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	req, ok := readGroupRequest("api.matches", w, r)
	if !ok {
		return
	}
	matches, err := h.deps.GenerateMatches(r.Context(), req.toService())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatches(matches))
}

// HandleComplete handles POST /groups/complete requests.
func (h *GroupsHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	const op = "api.complete"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
		return
	}
	var req completeRequest
	if err := decode(op, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.ActivityID == uuid.Nil {
		writeServiceError(w, WrapKind(op, ErrBadRequest, errMissing("activity_id")))
		return
	}
	if req.Size < 1 {
		writeServiceError(w, WrapKind(op, ErrBadRequest, errNotPositive("size")))
		return
	}

	result, err := h.deps.CompleteGroup(r.Context(), service.CompletionRequest{
		ActivityID:   req.ActivityID,
		Name:         req.Name,
		Size:         req.Size,
		MemberIDs:    req.MemberIDs,
		CandidateIDs: req.CandidateIDs,
		Min:          req.Min,
		Max:          req.Max,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{
		Group:     toGroup(result.Group),
		Selection: toMembers(result.Selection, result.Group.Activity()),
		InRange:   result.InRange,
	})
}
