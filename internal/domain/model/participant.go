// Package model contains the domain entities shared by the engines and adapters.
package model

import (
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Sentinel kinds for entity mutations.
var (
	ErrNegativeRating  = errors.New("rating must not be negative")
	ErrUnknownActivity = errors.New("activity has no identity")
)

// Activity is the thing a rating is given for (a game, a sport, ...).
// It is an immutable value used only as a lookup key.
type Activity struct {
	ID       uuid.UUID
	Name     string
	Category string
}

// NewActivity creates an Activity with a fresh identity.
func NewActivity(name, category string) Activity {
	return Activity{ID: uuid.New(), Name: name, Category: category}
}

// Assessment is a participant's rating for one activity. A level of 0 means
// "not assessed" for balancing purposes.
type Assessment struct {
	Activity Activity
	Level    int
}

// Participant is a rated person. Identity never changes; only assessments
// are added or replaced after construction.
type Participant struct {
	id          uuid.UUID
	Tag         string
	FirstName   string
	LastName    string
	assessments map[uuid.UUID]Assessment
}

// ParticipantOption configures a Participant at construction time.
type ParticipantOption func(*Participant)

// WithID restores a known identity, e.g. when rehydrating from storage.
func WithID(id uuid.UUID) ParticipantOption {
	return func(p *Participant) {
		if id != uuid.Nil {
			p.id = id
		}
	}
}

// WithName sets first and last name.
func WithName(first, last string) ParticipantOption {
	return func(p *Participant) {
		p.FirstName = first
		p.LastName = last
	}
}

// NewParticipant creates a Participant with a fresh identity.
func NewParticipant(tag string, opts ...ParticipantOption) *Participant {
	p := &Participant{
		id:          uuid.New(),
		Tag:         tag,
		assessments: make(map[uuid.UUID]Assessment),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the participant's identity.
func (p *Participant) ID() uuid.UUID { return p.id }

// FullName joins first and last name.
func (p *Participant) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Assess records the rating for activity, replacing any previous one.
func (p *Participant) Assess(activity Activity, level int) error {
	if activity.ID == uuid.Nil {
		return ErrUnknownActivity
	}
	if level < 0 {
		return ErrNegativeRating
	}
	p.assessments[activity.ID] = Assessment{Activity: activity, Level: level}
	return nil
}

// Rating returns the level for activity, or 0 when not assessed.
func (p *Participant) Rating(activity Activity) int {
	if p == nil {
		return 0
	}
	return p.assessments[activity.ID].Level
}

// IsRated reports whether the participant has a positive rating for activity.
func (p *Participant) IsRated(activity Activity) bool {
	return p.Rating(activity) > 0
}

// Assessments returns all assessments ordered by activity name, then id.
func (p *Participant) Assessments() []Assessment {
	out := make([]Assessment, 0, len(p.assessments))
	for _, a := range p.assessments {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b Assessment) int {
		if c := strings.Compare(a.Activity.Name, b.Activity.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Activity.ID.String(), b.Activity.ID.String())
	})
	return out
}

// HasDuplicates reports whether any two non-nil participants share an identity.
func HasDuplicates(participants []*Participant) bool {
	seen := make(map[uuid.UUID]struct{}, len(participants))
	for _, p := range participants {
		if p == nil {
			continue
		}
		if _, ok := seen[p.id]; ok {
			return true
		}
		seen[p.id] = struct{}{}
	}
	return false
}

// AllRated reports whether every participant is non-nil and rated for activity.
func AllRated(participants []*Participant, activity Activity) bool {
	for _, p := range participants {
		if p == nil || !p.IsRated(activity) {
			return false
		}
	}
	return true
}

// TotalRating sums the ratings of participants for activity.
func TotalRating(participants []*Participant, activity Activity) int {
	total := 0
	for _, p := range participants {
		total += p.Rating(activity)
	}
	return total
}
