package domain

import (
	"fmt"

	"acquisition_backend/platform/apperr"
)

// Status is the lifecycle shared by First Impressions and Mediation Contracts.
// The two entities carry independent values of this type.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSigned    Status = "signed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// allowedTransitions lists the forward moves out of each non-terminal state.
var allowedTransitions = map[Status][]Status{
	StatusDraft:  {StatusSigned, StatusCompleted, StatusCancelled},
	StatusSigned: {StatusCompleted, StatusCancelled},
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(normalizeKey(raw)); s {
	case StatusDraft, StatusSigned, StatusCompleted, StatusCancelled:
		return s, nil
	default:
		return "", apperr.Validation(fmt.Sprintf("unknown status %q", raw))
	}
}

// IsTerminal reports whether no further change is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CheckTransition guards a status change. Any move out of a terminal state
// is TransitionRejected; a move not in the forward table is a Validation error.
func CheckTransition(from, to Status) error {
	if from.IsTerminal() {
		return apperr.TransitionRejected(fmt.Sprintf("status is %s; no further changes are allowed", from))
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return apperr.Validation(fmt.Sprintf("cannot move from %s to %s", from, to))
}

// GuardMutable rejects edits (saves, signatures, document changes) on terminal entities.
func GuardMutable(s Status, entity string) error {
	if s.IsTerminal() {
		return apperr.TransitionRejected(fmt.Sprintf("%s is %s and can no longer be changed", entity, s))
	}
	return nil
}
