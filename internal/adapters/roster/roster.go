// Package roster reads and writes the JSON roster document that carries
// participants, activities and ratings between the service and its users.
//
// The document has two top-level arrays:
//
//	{"players":[{"id":..,"tag":..,"first_name":..,"last_name":..,"skills":[{"game_id":..,"level":..}]}],
//	 "games":[{"id":..,"name":..,"genre":..}]}
package roster

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/squad/internal/domain/model"
)

// Document is the wire shape of a roster.
type Document struct {
	Players []PlayerDoc `json:"players"`
	Games   []GameDoc   `json:"games"`
}

// PlayerDoc is one participant with its ratings.
type PlayerDoc struct {
	ID        uuid.UUID  `json:"id"`
	Tag       string     `json:"tag"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	Skills    []SkillDoc `json:"skills,omitempty"`
}

// SkillDoc links a player to a game by id.
type SkillDoc struct {
	GameID uuid.UUID `json:"game_id"`
	Level  int       `json:"level"`
}

// GameDoc is one activity.
type GameDoc struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Genre string    `json:"genre,omitempty"`
}

// Roster is the rehydrated entity graph.
type Roster struct {
	Activities   []model.Activity
	Participants []*model.Participant
}

// ActivityByName returns the first activity whose name matches
// case-insensitively.
func (r *Roster) ActivityByName(name string) (model.Activity, bool) {
	for _, a := range r.Activities {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return model.Activity{}, false
}

// Decode reads a document from r and rebuilds activities first, then
// participants with their assessments linked by game id.
func Decode(r io.Reader) (*Roster, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return FromDocument(doc)
}

// FromDocument rehydrates an already parsed document.
func FromDocument(doc Document) (*Roster, error) {
	games := make(map[uuid.UUID]model.Activity, len(doc.Games))
	out := &Roster{
		Activities:   make([]model.Activity, 0, len(doc.Games)),
		Participants: make([]*model.Participant, 0, len(doc.Players)),
	}
	for _, g := range doc.Games {
		if g.ID == uuid.Nil {
			return nil, fmt.Errorf("%w: game %q has no id", ErrInvalidDocument, g.Name)
		}
		if _, ok := games[g.ID]; ok {
			return nil, fmt.Errorf("%w: game %s", ErrDuplicateID, g.ID)
		}
		a := model.Activity{ID: g.ID, Name: g.Name, Category: g.Genre}
		games[g.ID] = a
		out.Activities = append(out.Activities, a)
	}

	seen := make(map[uuid.UUID]struct{}, len(doc.Players))
	for _, pd := range doc.Players {
		if pd.ID == uuid.Nil {
			return nil, fmt.Errorf("%w: player %q has no id", ErrInvalidDocument, pd.Tag)
		}
		if _, ok := seen[pd.ID]; ok {
			return nil, fmt.Errorf("%w: player %s", ErrDuplicateID, pd.ID)
		}
		seen[pd.ID] = struct{}{}

		p := model.NewParticipant(pd.Tag, model.WithID(pd.ID), model.WithName(pd.FirstName, pd.LastName))
		for _, s := range pd.Skills {
			game, ok := games[s.GameID]
			if !ok {
				return nil, fmt.Errorf("%w: player %s game %s", ErrUnknownActivity, pd.ID, s.GameID)
			}
			if err := p.Assess(game, s.Level); err != nil {
				return nil, fmt.Errorf("%w: player %s: %w", ErrInvalidDocument, pd.ID, err)
			}
		}
		out.Participants = append(out.Participants, p)
	}
	return out, nil
}

// ToDocument converts activities and participants into the wire shape.
// Players are sorted by tag then id, games by name then id.
func ToDocument(activities []model.Activity, participants []*model.Participant) Document {
	doc := Document{
		Players: make([]PlayerDoc, 0, len(participants)),
		Games:   make([]GameDoc, 0, len(activities)),
	}
	for _, a := range activities {
		doc.Games = append(doc.Games, GameDoc{ID: a.ID, Name: a.Name, Genre: a.Category})
	}
	for _, p := range participants {
		if p == nil {
			continue
		}
		pd := PlayerDoc{ID: p.ID(), Tag: p.Tag, FirstName: p.FirstName, LastName: p.LastName}
		for _, a := range p.Assessments() {
			pd.Skills = append(pd.Skills, SkillDoc{GameID: a.Activity.ID, Level: a.Level})
		}
		doc.Players = append(doc.Players, pd)
	}

	slices.SortFunc(doc.Games, func(a, b GameDoc) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID.String(), b.ID.String()))
	})
	slices.SortFunc(doc.Players, func(a, b PlayerDoc) int {
		return cmp.Or(strings.Compare(a.Tag, b.Tag), strings.Compare(a.ID.String(), b.ID.String()))
	})
	return doc
}

// Encode writes the roster to w as indented JSON.
func Encode(w io.Writer, activities []model.Activity, participants []*model.Participant) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToDocument(activities, participants)); err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	return nil
}
