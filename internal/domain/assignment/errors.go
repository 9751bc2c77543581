package assignment

import "errors"

// Code enumerates the reasons an assignment request is rejected.
type Code int

const (
	// DuplicateParticipants means the same identity appears twice in the pool.
	DuplicateParticipants Code = iota + 1
	// SizeMismatch means the pool cannot form two full groups.
	SizeMismatch
	// IncompleteRatings means a participant has no positive rating for the activity.
	IncompleteRatings
)

func (c Code) String() string {
	switch c {
	case DuplicateParticipants:
		return "duplicate_participants"
	case SizeMismatch:
		return "size_mismatch"
	case IncompleteRatings:
		return "incomplete_ratings"
	default:
		return "unknown"
	}
}

// Error is returned for every rejected assignment request.
type Error struct {
	Op   string
	Code Code
}

func (e *Error) Error() string {
	if e.Op == "" {
		return "assignment: " + e.Code.String()
	}
	return "assignment " + e.Op + ": " + e.Code.String()
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel errors for errors.Is checks.
var (
	ErrDuplicateParticipants = &Error{Code: DuplicateParticipants}
	ErrSizeMismatch          = &Error{Code: SizeMismatch}
	ErrIncompleteRatings     = &Error{Code: IncompleteRatings}
)

// CodeOf extracts the Code from err, if it is an assignment error.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
