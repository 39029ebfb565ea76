// Package lock defines named single-instance locks. A caller that finds a
// lock held must give up immediately rather than wait.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrHeld is returned by Acquire when another owner holds a live lock.
var ErrHeld = errors.New("lock is held by another instance")

// Release frees a lock acquired by Acquire. Releasing a lock that has since
// been taken over by another owner is a no-op.
type Release func(ctx context.Context) error

// Locker hands out named locks. A lock whose TTL has elapsed may be taken
// over by a new owner, so a crashed holder never blocks the next pass forever.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (Release, error)
}
