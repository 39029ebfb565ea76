package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/yearn/internal/core/lock"
	"github.com/colonyops/yearn/internal/data/db"
	"github.com/colonyops/yearn/pkg/randid"
)

// LockStore implements lock.Locker with a row per named lock.
type LockStore struct {
	db  *db.DB
	now func() time.Time
}

var _ lock.Locker = (*LockStore)(nil)

// NewLockStore creates a new SQLite-backed locker.
func NewLockStore(db *db.DB) *LockStore {
	return &LockStore{db: db, now: time.Now}
}

// Acquire takes the named lock for ttl. Returns lock.ErrHeld when a live lock
// is owned by someone else.
func (s *LockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (lock.Release, error) {
	owner := randid.Generate(12)
	now := s.now()

	n, err := s.db.Queries().AcquireLock(ctx, db.AcquireLockParams{
		Name:       name,
		Owner:      owner,
		AcquiredAt: now.UnixNano(),
		ExpiresAt:  now.Add(ttl).UnixNano(),
	})
	if IsBusyError(err) {
		return nil, fmt.Errorf("acquire %s: %w", name, lock.ErrHeld)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", name, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("acquire %s: %w", name, lock.ErrHeld)
	}

	release := func(ctx context.Context) error {
		if err := s.db.Queries().ReleaseLock(ctx, db.ReleaseLockParams{Name: name, Owner: owner}); err != nil {
			return fmt.Errorf("release %s: %w", name, err)
		}
		return nil
	}
	return release, nil
}

// SweepExpired removes lock rows whose TTL has passed.
func (s *LockStore) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.db.Queries().SweepExpiredLocks(ctx, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sweep expired locks: %w", err)
	}
	return n, nil
}
