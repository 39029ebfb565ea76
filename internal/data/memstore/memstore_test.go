package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/yearn/internal/core/desire"
	corekv "github.com/colonyops/yearn/internal/core/kv"
	"github.com/colonyops/yearn/internal/core/lock"
)

func TestStore_CopiesOnSave(t *testing.T) {
	ctx := context.Background()
	s := New()

	d := desire.Desire{
		ID:        "d1",
		Title:     "Tidy notes",
		Status:    desire.StatusNascent,
		Tags:      []string{"task"},
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.Save(ctx, "ana", d))

	d.Tags[0] = "mutated"
	got, err := s.Get(ctx, "ana", "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"task"}, got.Tags)
}

func TestStore_MoveStatus(t *testing.T) {
	ctx := context.Background()
	s := New()

	d := desire.Desire{ID: "d1", Status: desire.StatusNascent, CreatedAt: time.Now()}
	require.NoError(t, s.Save(ctx, "ana", d))

	require.NoError(t, s.MoveStatus(ctx, "ana", d, desire.StatusNascent, desire.StatusPending))
	require.NoError(t, s.MoveStatus(ctx, "ana", d, desire.StatusNascent, desire.StatusPending), "idempotent")

	err := s.MoveStatus(ctx, "ana", d, desire.StatusApproved, desire.StatusExecuting)
	require.ErrorIs(t, err, desire.ErrInvalidTransition)

	pending, err := s.ListByStatus(ctx, "ana", desire.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	other, err := s.ListByStatus(ctx, "ben", desire.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_UpdateGuardedByStatus(t *testing.T) {
	ctx := context.Background()
	s := New()

	d := desire.Desire{ID: "d1", Status: desire.StatusPending, Strength: 0.1, CreatedAt: time.Now()}
	require.NoError(t, s.Save(ctx, "ana", d))

	stale := d
	require.NoError(t, s.MoveStatus(ctx, "ana", d, desire.StatusPending, desire.StatusRejected))

	stale.Strength = 0.5
	require.ErrorIs(t, s.Update(ctx, "ana", stale), desire.ErrStale)

	got, err := s.Get(ctx, "ana", "d1")
	require.NoError(t, err)
	assert.Equal(t, desire.StatusRejected, got.Status)
	assert.InDelta(t, 0.1, got.Strength, 1e-9)

	require.ErrorIs(t, s.Update(ctx, "ben", stale), desire.ErrNotFound)
}

func TestStore_Locks(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }

	release, err := s.Acquire(ctx, "desire-generator", time.Minute)
	require.NoError(t, err)

	_, err = s.Acquire(ctx, "desire-generator", time.Minute)
	require.ErrorIs(t, err, lock.ErrHeld)

	require.NoError(t, release(ctx))
	_, err = s.Acquire(ctx, "desire-generator", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Acquire(ctx, "desire-generator", time.Minute)
	require.NoError(t, err, "expired lease can be taken over")
}

func TestKV(t *testing.T) {
	ctx := context.Background()
	s := NewKV()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }

	runs := corekv.Scoped[int](s, "runs")
	require.NoError(t, runs.Set(ctx, "b", 2))
	require.NoError(t, runs.SetTTL(ctx, "a", 1, time.Minute))

	all, err := runs.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, all)

	now = now.Add(time.Hour)
	_, err = runs.Get(ctx, "a")
	require.ErrorIs(t, err, corekv.ErrNotFound)
}
