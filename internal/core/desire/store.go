package desire

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a desire does not exist in the user's namespace.
	ErrNotFound = errors.New("desire not found")
	// ErrNoPlan is returned when an approved desire reaches execution without a plan.
	ErrNoPlan = errors.New("desire has no plan attached")
	// ErrStale is returned by Update when the stored desire has left the
	// status the caller read it in.
	ErrStale = errors.New("desire changed status since it was read")
)

// Metric names incremented by the engine.
const (
	MetricGenerated         = "desires_generated"
	MetricGenerationSkipped = "generation_skipped"
	MetricReinforced        = "desires_reinforced"
	MetricDecayed           = "desires_decayed"
	MetricAbandoned         = "desires_abandoned"
	MetricPromoted          = "desires_promoted"
	MetricActivated         = "desires_activated"
	MetricApproved          = "desires_approved"
	MetricRejected          = "desires_rejected"
	MetricCompleted         = "desires_completed"
	MetricFailed            = "desires_failed"
	MetricCyclesRun         = "cycles_run"
)

// Store persists desires grouped by status within a user namespace.
//
// Implementations must round-trip every Desire field losslessly. A desire is
// visible in exactly one status group at any time.
type Store interface {
	// ListByStatus returns the user's desires in the given status, ordered by
	// creation time (oldest first).
	ListByStatus(ctx context.Context, user string, status Status) ([]Desire, error)

	// Get returns a desire by ID. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, user, id string) (Desire, error)

	// Save creates or updates a desire in the status group named by d.Status.
	Save(ctx context.Context, user string, d Desire) error

	// Update persists d only while the stored desire is still in d.Status.
	// Returns ErrStale when it has moved to another group and ErrNotFound
	// when it does not exist.
	Update(ctx context.Context, user string, d Desire) error

	// MoveStatus atomically relocates d from one status group to another and
	// persists d with Status set to to. It is a no-op when the stored desire
	// is already in to.
	MoveStatus(ctx context.Context, user string, d Desire, from, to Status) error

	// IncrementMetric adds one to the named counter for the user.
	IncrementMetric(ctx context.Context, user, name string) error

	// Metrics returns every counter recorded for the user.
	Metrics(ctx context.Context, user string) (map[string]int64, error)
}

// ListByStatuses concatenates ListByStatus over several statuses, preserving
// the order of statuses given.
func ListByStatuses(ctx context.Context, s Store, user string, statuses ...Status) ([]Desire, error) {
	var out []Desire
	for _, st := range statuses {
		items, err := s.ListByStatus(ctx, user, st)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}
