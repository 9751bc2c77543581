package api

import (
	"github.com/google/uuid"
	"github.com/okian/squad/internal/domain/model"
)

type activityRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type activityResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category,omitempty"`
}

func toActivity(a model.Activity) activityResponse {
	return activityResponse{ID: a.ID, Name: a.Name, Category: a.Category}
}

type participantRequest struct {
	Tag       string `json:"tag"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ratingRequest struct {
	ActivityID uuid.UUID `json:"activity_id"`
	Level      *int      `json:"level"`
}

type ratingResponse struct {
	ActivityID uuid.UUID `json:"activity_id"`
	Activity   string    `json:"activity"`
	Level      int       `json:"level"`
}

type participantResponse struct {
	ID        uuid.UUID        `json:"id"`
	Tag       string           `json:"tag"`
	FirstName string           `json:"first_name,omitempty"`
	LastName  string           `json:"last_name,omitempty"`
	Ratings   []ratingResponse `json:"ratings"`
}

func toParticipant(p *model.Participant) participantResponse {
	out := participantResponse{
		ID:        p.ID(),
		Tag:       p.Tag,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Ratings:   []ratingResponse{},
	}
	for _, a := range p.Assessments() {
		out.Ratings = append(out.Ratings, ratingResponse{
			ActivityID: a.Activity.ID,
			Activity:   a.Activity.Name,
			Level:      a.Level,
		})
	}
	return out
}

type groupRequest struct {
	ActivityID     uuid.UUID   `json:"activity_id"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	Size           int         `json:"size"`
}

type completeRequest struct {
	ActivityID   uuid.UUID   `json:"activity_id"`
	Name         string      `json:"name"`
	Size         int         `json:"size"`
	MemberIDs    []uuid.UUID `json:"member_ids"`
	CandidateIDs []uuid.UUID `json:"candidate_ids"`
	Min          int         `json:"min"`
	Max          int         `json:"max"`
}

// memberResponse is a participant as seen from inside one group.
type memberResponse struct {
	ID     uuid.UUID `json:"id"`
	Tag    string    `json:"tag"`
	Rating int       `json:"rating"`
}

type groupResponse struct {
	ID         uuid.UUID        `json:"id"`
	Name       string           `json:"name"`
	ActivityID uuid.UUID        `json:"activity_id"`
	TargetSize int              `json:"target_size"`
	Rating     int              `json:"rating"`
	Members    []memberResponse `json:"members"`
}

func toMembers(ps []*model.Participant, activity model.Activity) []memberResponse {
	out := make([]memberResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, memberResponse{ID: p.ID(), Tag: p.Tag, Rating: p.Rating(activity)})
	}
	return out
}

func toGroup(g *model.Group) groupResponse {
	return groupResponse{
		ID:         g.ID(),
		Name:       g.Name(),
		ActivityID: g.Activity().ID,
		TargetSize: g.TargetSize(),
		Rating:     g.Rating(),
		Members:    toMembers(g.Members(), g.Activity()),
	}
}

func toGroups(groups []*model.Group) []groupResponse {
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroup(g))
	}
	return out
}

type matchResponse struct {
	ID   uuid.UUID      `json:"id"`
	Home groupResponse  `json:"home"`
	Away *groupResponse `json:"away"`
}

func toMatches(matches []model.Match) []matchResponse {
	out := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		resp := matchResponse{ID: m.ID, Home: toGroup(m.Home)}
		if m.HasOpponent() {
			away := toGroup(m.Away)
			resp.Away = &away
		}
		out = append(out, resp)
	}
	return out
}

type completeResponse struct {
	Group     groupResponse    `json:"group"`
	Selection []memberResponse `json:"selection"`
	InRange   bool             `json:"in_range"`
}

type importResponse struct {
	Participants int `json:"participants"`
	Activities   int `json:"activities"`
}
