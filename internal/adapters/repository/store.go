// Package repository defines the roster store interface and its memory and
// SQLite implementations.
package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/squad/internal/domain/model"
)

// Store persists activities, participants and their ratings.
//
// Participants returned by a Store are fresh values: mutating them does not
// change stored state. Use SaveAssessment to record a rating.
type Store interface {
	// PutActivity stores a new activity. Returns ErrAlreadyExists on a known id.
	PutActivity(ctx context.Context, a model.Activity) error
	// Activity returns one activity. Returns ErrNotFound if unknown.
	Activity(ctx context.Context, id uuid.UUID) (model.Activity, error)
	// Activities returns all activities ordered by name, then id.
	Activities(ctx context.Context) ([]model.Activity, error)

	// PutParticipant stores a new participant with its current assessments.
	// Returns ErrAlreadyExists on a known id and ErrNotFound when an
	// assessment references an unknown activity.
	PutParticipant(ctx context.Context, p *model.Participant) error
	// Participant returns one participant. Returns ErrNotFound if unknown.
	Participant(ctx context.Context, id uuid.UUID) (*model.Participant, error)
	// Participants returns all participants ordered by tag, then id.
	Participants(ctx context.Context) ([]*model.Participant, error)

	// SaveAssessment sets the rating of a participant for an activity,
	// replacing any previous one. Returns ErrNotFound if either is unknown.
	SaveAssessment(ctx context.Context, participantID, activityID uuid.UUID, level int) error

	// Replace atomically swaps the whole roster for the given one.
	Replace(ctx context.Context, activities []model.Activity, participants []*model.Participant) error

	// Counts returns the number of stored participants and activities.
	Counts(ctx context.Context) (participants, activities int, err error)

	Close() error
}

func sortActivities(as []model.Activity) {
	slices.SortFunc(as, func(a, b model.Activity) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID.String(), b.ID.String()))
	})
}

func sortParticipants(ps []*model.Participant) {
	slices.SortFunc(ps, func(a, b *model.Participant) int {
		return cmp.Or(strings.Compare(a.Tag, b.Tag), strings.Compare(a.ID().String(), b.ID().String()))
	})
}
