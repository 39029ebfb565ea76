package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/data/db"
)

const busyRetries = 3

// DesireStore implements desire.Store using SQLite. Each desire is stored as a
// JSON document alongside indexed user, status and creation columns.
type DesireStore struct {
	db *db.DB
}

var _ desire.Store = (*DesireStore)(nil)

// NewDesireStore creates a new SQLite-backed desire store.
func NewDesireStore(db *db.DB) *DesireStore {
	return &DesireStore{db: db}
}

// ListByStatus returns the user's desires in status, oldest first.
func (s *DesireStore) ListByStatus(ctx context.Context, user string, status desire.Status) ([]desire.Desire, error) {
	rows, err := s.db.Queries().ListDesiresByStatus(ctx, db.ListDesiresByStatusParams{
		UserName: user,
		Status:   string(status),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s desires: %w", status, err)
	}

	out := make([]desire.Desire, 0, len(rows))
	for _, row := range rows {
		d, err := rowToDesire(row)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Get returns a desire by ID. Returns desire.ErrNotFound if not found.
func (s *DesireStore) Get(ctx context.Context, user, id string) (desire.Desire, error) {
	row, err := s.db.Queries().GetDesire(ctx, db.GetDesireParams{UserName: user, ID: id})
	if IsNotFoundError(err) {
		return desire.Desire{}, desire.ErrNotFound
	}
	if err != nil {
		return desire.Desire{}, fmt.Errorf("failed to get desire: %w", err)
	}
	return rowToDesire(row)
}

// Save creates or updates a desire.
func (s *DesireStore) Save(ctx context.Context, user string, d desire.Desire) error {
	return s.withBusyRetry(ctx, func() error {
		return saveDesire(ctx, s.db.Queries(), user, d)
	})
}

// Update writes d only if the stored row is still in d.Status.
func (s *DesireStore) Update(ctx context.Context, user string, d desire.Desire) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal desire: %w", err)
	}

	return s.withBusyRetry(ctx, func() error {
		n, err := s.db.Queries().UpdateDesireInStatus(ctx, db.UpdateDesireInStatusParams{
			Title:     d.Title,
			Data:      string(data),
			UpdatedAt: d.UpdatedAt.UnixNano(),
			UserName:  user,
			ID:        d.ID,
			Status:    string(d.Status),
		})
		if err != nil {
			return fmt.Errorf("failed to update desire: %w", err)
		}
		if n > 0 {
			return nil
		}

		_, err = s.db.Queries().GetDesire(ctx, db.GetDesireParams{UserName: user, ID: d.ID})
		if IsNotFoundError(err) {
			return desire.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load desire: %w", err)
		}
		return desire.ErrStale
	})
}

// MoveStatus relocates d from one status group to another in a single
// transaction. It is a no-op when the stored desire already sits in to, and
// returns a *desire.TransitionError when it sits anywhere other than from.
func (s *DesireStore) MoveStatus(ctx context.Context, user string, d desire.Desire, from, to desire.Status) error {
	return s.withBusyRetry(ctx, func() error {
		return s.db.WithTx(ctx, func(q *db.Queries) error {
			row, err := q.GetDesire(ctx, db.GetDesireParams{UserName: user, ID: d.ID})
			if IsNotFoundError(err) {
				return desire.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("failed to load desire: %w", err)
			}

			current := desire.Status(row.Status)
			switch current {
			case to:
				return nil
			case from:
			default:
				return &desire.TransitionError{From: current, To: to}
			}

			d.Status = to
			return saveDesire(ctx, q, user, d)
		})
	})
}

// IncrementMetric adds one to the named counter for the user.
func (s *DesireStore) IncrementMetric(ctx context.Context, user, name string) error {
	return s.withBusyRetry(ctx, func() error {
		err := s.db.Queries().IncrementMetric(ctx, db.IncrementMetricParams{UserName: user, Name: name})
		if err != nil {
			return fmt.Errorf("failed to increment metric %s: %w", name, err)
		}
		return nil
	})
}

// Metrics returns every counter recorded for the user.
func (s *DesireStore) Metrics(ctx context.Context, user string) (map[string]int64, error) {
	rows, err := s.db.Queries().ListMetrics(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Name] = row.Value
	}
	return out, nil
}

// Users returns every user that has at least one stored desire.
func (s *DesireStore) Users(ctx context.Context) ([]string, error) {
	users, err := s.db.Queries().ListDesireUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// withBusyRetry retries fn while SQLite reports the database as busy. The
// busy_timeout pragma covers most contention; this handles writers that
// upgrade from a read transaction.
func (s *DesireStore) withBusyRetry(ctx context.Context, fn func() error) error {
	wait := 50 * time.Millisecond
	var err error
	for range busyRetries {
		err = fn()
		if !IsBusyError(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			wait *= 2
		}
	}
	return err
}

func saveDesire(ctx context.Context, q *db.Queries, user string, d desire.Desire) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal desire: %w", err)
	}

	err = q.SaveDesire(ctx, db.SaveDesireParams{
		UserName:  user,
		ID:        d.ID,
		Status:    string(d.Status),
		Title:     d.Title,
		Data:      string(data),
		CreatedAt: d.CreatedAt.UnixNano(),
		UpdatedAt: d.UpdatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to save desire: %w", err)
	}
	return nil
}

func rowToDesire(row db.DesireRow) (desire.Desire, error) {
	var d desire.Desire
	if err := json.Unmarshal([]byte(row.Data), &d); err != nil {
		return desire.Desire{}, fmt.Errorf("failed to unmarshal desire %s: %w", row.ID, err)
	}
	// The column is authoritative for the group the desire lives in.
	d.Status = desire.Status(row.Status)
	return d, nil
}
