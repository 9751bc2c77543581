package roster

import "errors"

var (
	// ErrInvalidDocument is returned when the document cannot be parsed.
	ErrInvalidDocument = errors.New("invalid roster document")
	// ErrUnknownActivity is returned when a skill references a game that is
	// not listed in the document.
	ErrUnknownActivity = errors.New("skill references unknown game")
	// ErrDuplicateID is returned when two players or two games share an id.
	ErrDuplicateID = errors.New("duplicate id in roster document")
)
