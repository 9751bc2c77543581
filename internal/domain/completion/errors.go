package completion

import "errors"

// Code enumerates the reasons a completion request is rejected.
type Code int

const (
	// NegativeRange means a bound of the target range is below zero.
	NegativeRange Code = iota + 1
	// InvertedRange means the lower bound exceeds the upper bound.
	InvertedRange
	// MissingGroup means no group was supplied.
	MissingGroup
	// AlreadyFull means the group has no free seat, including a group whose
	// target size is at or below its current size.
	AlreadyFull
	// DuplicateParticipants means a candidate identity appears twice.
	DuplicateParticipants
	// CandidateAlreadyMember means a candidate is already in the group.
	CandidateAlreadyMember
	// InsufficientCandidates means there are not more candidates than free seats.
	InsufficientCandidates
	// IncompleteRatings means a candidate has no positive rating for the group's activity.
	IncompleteRatings
)

func (c Code) String() string {
	switch c {
	case NegativeRange:
		return "negative_range"
	case InvertedRange:
		return "inverted_range"
	case MissingGroup:
		return "missing_group"
	case AlreadyFull:
		return "already_full"
	case DuplicateParticipants:
		return "duplicate_participants"
	case CandidateAlreadyMember:
		return "candidate_already_member"
	case InsufficientCandidates:
		return "insufficient_candidates"
	case IncompleteRatings:
		return "incomplete_ratings"
	default:
		return "unknown"
	}
}

// Error is returned for every rejected completion request.
type Error struct {
	Op   string
	Code Code
}

func (e *Error) Error() string {
	if e.Op == "" {
		return "completion: " + e.Code.String()
	}
	return "completion " + e.Op + ": " + e.Code.String()
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel errors for errors.Is checks.
var (
	ErrNegativeRange          = &Error{Code: NegativeRange}
	ErrInvertedRange          = &Error{Code: InvertedRange}
	ErrMissingGroup           = &Error{Code: MissingGroup}
	ErrAlreadyFull            = &Error{Code: AlreadyFull}
	ErrDuplicateParticipants  = &Error{Code: DuplicateParticipants}
	ErrCandidateAlreadyMember = &Error{Code: CandidateAlreadyMember}
	ErrInsufficientCandidates = &Error{Code: InsufficientCandidates}
	ErrIncompleteRatings      = &Error{Code: IncompleteRatings}
)

// CodeOf extracts the Code from err, if it is a completion error.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
