package desire

import (
	"errors"
	"fmt"
)

// Status represents the lifecycle state of a desire.
// ENUM(nascent, pending, approved, executing, completed, failed, abandoned, rejected).
type Status string

const (
	StatusNascent   Status = "nascent"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusAbandoned Status = "abandoned"
	StatusRejected  Status = "rejected"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusNascent,
	StatusPending,
	StatusApproved,
	StatusExecuting,
	StatusCompleted,
	StatusFailed,
	StatusAbandoned,
	StatusRejected,
}

// ErrInvalidTransition is matched by every TransitionError.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError describes a rejected edge in the state machine.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

var transitions = map[Status][]Status{
	StatusNascent:   {StatusPending, StatusAbandoned, StatusRejected},
	StatusPending:   {StatusApproved, StatusAbandoned, StatusRejected},
	StatusApproved:  {StatusExecuting, StatusRejected},
	StatusExecuting: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseStatus converts a string into a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// IsTerminal reports whether no further transitions leave this status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusAbandoned, StatusRejected:
		return true
	}
	return false
}

// IsNurturable reports whether nurture and activation passes operate on
// desires in this status.
func (s Status) IsNurturable() bool {
	return s == StatusNascent || s == StatusPending
}
