// Package memstore provides in-memory implementations of the storage
// contracts. Values are copied through JSON on the way in and out so callers
// observe the same aliasing rules as the SQLite stores.
//
// The scheduler falls back to it with --ephemeral, and engine tests use it to
// avoid touching disk.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/lock"
	"github.com/colonyops/yearn/pkg/kv"
	"github.com/colonyops/yearn/pkg/randid"
)

type desireKey struct {
	user string
	id   string
}

type metricKey struct {
	user string
	name string
}

type lease struct {
	owner   string
	expires time.Time
}

// Store implements desire.Store and lock.Locker in memory.
type Store struct {
	desires *kv.Store[desireKey, []byte]
	metrics *kv.Store[metricKey, int64]
	locks   *kv.Store[string, lease]

	// Now is the clock used for TTL checks.
	Now func() time.Time
}

var (
	_ desire.Store = (*Store)(nil)
	_ lock.Locker  = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{
		desires: kv.New[desireKey, []byte](),
		metrics: kv.New[metricKey, int64](),
		locks:   kv.New[string, lease](),
		Now:     time.Now,
	}
}

func (s *Store) ListByStatus(_ context.Context, user string, status desire.Status) ([]desire.Desire, error) {
	raw := s.desires.Values(func(k desireKey) bool { return k.user == user })

	out := make([]desire.Desire, 0, len(raw))
	for _, b := range raw {
		d, err := decode(b)
		if err != nil {
			return nil, err
		}
		if d.Status == status {
			out = append(out, d)
		}
	}

	slices.SortFunc(out, func(a, b desire.Desire) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, user, id string) (desire.Desire, error) {
	b, ok := s.desires.Get(desireKey{user: user, id: id})
	if !ok {
		return desire.Desire{}, desire.ErrNotFound
	}
	return decode(b)
}

func (s *Store) Save(_ context.Context, user string, d desire.Desire) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal desire: %w", err)
	}
	s.desires.Set(desireKey{user: user, id: d.ID}, b)
	return nil
}

func (s *Store) Update(_ context.Context, user string, d desire.Desire) error {
	return s.desires.Update(desireKey{user: user, id: d.ID}, func(cur []byte, ok bool) ([]byte, bool, error) {
		if !ok {
			return nil, false, desire.ErrNotFound
		}
		stored, err := decode(cur)
		if err != nil {
			return nil, false, err
		}
		if stored.Status != d.Status {
			return nil, false, desire.ErrStale
		}
		b, err := json.Marshal(d)
		if err != nil {
			return nil, false, fmt.Errorf("marshal desire: %w", err)
		}
		return b, true, nil
	})
}

func (s *Store) MoveStatus(_ context.Context, user string, d desire.Desire, from, to desire.Status) error {
	return s.desires.Update(desireKey{user: user, id: d.ID}, func(cur []byte, ok bool) ([]byte, bool, error) {
		if !ok {
			return nil, false, desire.ErrNotFound
		}
		stored, err := decode(cur)
		if err != nil {
			return nil, false, err
		}
		switch stored.Status {
		case to:
			return cur, true, nil
		case from:
		default:
			return nil, false, &desire.TransitionError{From: stored.Status, To: to}
		}

		d.Status = to
		b, err := json.Marshal(d)
		if err != nil {
			return nil, false, fmt.Errorf("marshal desire: %w", err)
		}
		return b, true, nil
	})
}

func (s *Store) IncrementMetric(_ context.Context, user, name string) error {
	return s.metrics.Update(metricKey{user: user, name: name}, func(cur int64, _ bool) (int64, bool, error) {
		return cur + 1, true, nil
	})
}

func (s *Store) Metrics(_ context.Context, user string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, k := range s.metrics.Keys() {
		if k.user != user {
			continue
		}
		v, _ := s.metrics.Get(k)
		out[k.name] = v
	}
	return out, nil
}

// Acquire implements lock.Locker.
func (s *Store) Acquire(_ context.Context, name string, ttl time.Duration) (lock.Release, error) {
	owner := randid.Generate(12)
	now := s.Now()

	err := s.locks.Update(name, func(cur lease, ok bool) (lease, bool, error) {
		if ok && !now.After(cur.expires) {
			return cur, true, fmt.Errorf("acquire %s: %w", name, lock.ErrHeld)
		}
		return lease{owner: owner, expires: now.Add(ttl)}, true, nil
	})
	if err != nil {
		return nil, err
	}

	return func(context.Context) error {
		return s.locks.Update(name, func(cur lease, ok bool) (lease, bool, error) {
			if !ok || cur.owner != owner {
				return cur, ok, nil
			}
			return lease{}, false, nil
		})
	}, nil
}

func decode(b []byte) (desire.Desire, error) {
	var d desire.Desire
	if err := json.Unmarshal(b, &d); err != nil {
		return desire.Desire{}, fmt.Errorf("unmarshal desire: %w", err)
	}
	return d, nil
}
