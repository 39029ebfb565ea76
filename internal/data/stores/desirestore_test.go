package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/data/db"
)

func newTestDesireStore(t *testing.T) *DesireStore {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err, "Open")
	t.Cleanup(func() { _ = database.Close() })
	return NewDesireStore(database)
}

func sampleDesire(id, title string, created time.Time) desire.Desire {
	step := 0
	done := created.Add(time.Minute)
	return desire.Desire{
		ID:                 id,
		Title:              title,
		Description:        "desc",
		Reason:             "reason",
		Source:             desire.SourceTask,
		SourceID:           "task-1",
		Strength:           0.05,
		BaseWeight:         0.8,
		Threshold:          0.7,
		DecayRate:          0.02,
		Reinforcements:     2,
		RunCount:           3,
		Risk:               desire.RiskLow,
		RequiredTrustLevel: desire.TrustBoundedAuto,
		Status:             desire.StatusNascent,
		CreatedAt:          created,
		UpdatedAt:          created,
		LastReviewedAt:     created,
		Plan: &desire.Plan{Steps: []desire.PlanStep{
			{Order: 1, Action: "write", Skill: "note", Inputs: map[string]any{"path": "notes.md"}},
		}},
		Execution: &desire.Execution{
			StartedAt:      created,
			Status:         desire.ExecutionCompleted,
			CurrentStep:    &step,
			StepsCompleted: 1,
			StepResults:    []desire.StepResult{{StepOrder: 1, Success: true, Result: "ok", CompletedAt: done}},
			CompletedAt:    &done,
		},
		Tags:     []string{"task", "low"},
		Metadata: map[string]string{desire.MetaSuggestedAction: "write it down"},
	}
}

func TestDesireStore(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("save and get round trips every field", func(t *testing.T) {
		store := newTestDesireStore(t)
		d := sampleDesire("d1", "Tidy notes", base)

		require.NoError(t, store.Save(ctx, "ana", d), "Save")

		got, err := store.Get(ctx, "ana", "d1")
		require.NoError(t, err, "Get")
		assert.Equal(t, d, got)
	})

	t.Run("get not found", func(t *testing.T) {
		store := newTestDesireStore(t)

		_, err := store.Get(ctx, "ana", "missing")
		assert.ErrorIs(t, err, desire.ErrNotFound)
	})

	t.Run("users are isolated", func(t *testing.T) {
		store := newTestDesireStore(t)
		require.NoError(t, store.Save(ctx, "ana", sampleDesire("d1", "Tidy notes", base)))

		_, err := store.Get(ctx, "ben", "d1")
		require.ErrorIs(t, err, desire.ErrNotFound)

		list, err := store.ListByStatus(ctx, "ben", desire.StatusNascent)
		require.NoError(t, err)
		assert.Empty(t, list)

		users, err := store.Users(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"ana"}, users)
	})

	t.Run("list is oldest first", func(t *testing.T) {
		store := newTestDesireStore(t)
		require.NoError(t, store.Save(ctx, "ana", sampleDesire("late", "Later", base.Add(time.Hour))))
		require.NoError(t, store.Save(ctx, "ana", sampleDesire("early", "Earlier", base)))

		list, err := store.ListByStatus(ctx, "ana", desire.StatusNascent)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "early", list[0].ID)
		assert.Equal(t, "late", list[1].ID)
	})

	t.Run("move status relocates", func(t *testing.T) {
		store := newTestDesireStore(t)
		d := sampleDesire("d1", "Tidy notes", base)
		require.NoError(t, store.Save(ctx, "ana", d))

		d.Strength = 0.2
		require.NoError(t, store.MoveStatus(ctx, "ana", d, desire.StatusNascent, desire.StatusPending))

		nascent, err := store.ListByStatus(ctx, "ana", desire.StatusNascent)
		require.NoError(t, err)
		assert.Empty(t, nascent)

		pending, err := store.ListByStatus(ctx, "ana", desire.StatusPending)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, desire.StatusPending, pending[0].Status)
		assert.InDelta(t, 0.2, pending[0].Strength, 1e-9)
	})

	t.Run("update is guarded by status", func(t *testing.T) {
		store := newTestDesireStore(t)
		d := sampleDesire("d1", "Tidy notes", base)
		d.Status = desire.StatusPending
		require.NoError(t, store.Save(ctx, "ana", d))

		stale := d
		d.Plan = &desire.Plan{Steps: []desire.PlanStep{{Order: 1, Skill: "mail"}}}
		require.NoError(t, store.MoveStatus(ctx, "ana", d, desire.StatusPending, desire.StatusApproved))

		stale.Strength = 0.4
		require.ErrorIs(t, store.Update(ctx, "ana", stale), desire.ErrStale)

		got, err := store.Get(ctx, "ana", "d1")
		require.NoError(t, err)
		assert.Equal(t, desire.StatusApproved, got.Status)
		assert.Equal(t, "mail", got.Plan.Steps[0].Skill)
		assert.InDelta(t, 0.05, got.Strength, 1e-9)

		got.Strength = 0.3
		require.NoError(t, store.Update(ctx, "ana", got))
		got, err = store.Get(ctx, "ana", "d1")
		require.NoError(t, err)
		assert.InDelta(t, 0.3, got.Strength, 1e-9)

		missing := sampleDesire("nope", "Missing", base)
		require.ErrorIs(t, store.Update(ctx, "ana", missing), desire.ErrNotFound)
	})

	t.Run("move status is idempotent", func(t *testing.T) {
		store := newTestDesireStore(t)
		d := sampleDesire("d1", "Tidy notes", base)
		require.NoError(t, store.Save(ctx, "ana", d))

		require.NoError(t, store.MoveStatus(ctx, "ana", d, desire.StatusNascent, desire.StatusPending))
		require.NoError(t, store.MoveStatus(ctx, "ana", d, desire.StatusNascent, desire.StatusPending))

		got, err := store.Get(ctx, "ana", "d1")
		require.NoError(t, err)
		assert.Equal(t, desire.StatusPending, got.Status)
	})

	t.Run("move status from wrong group", func(t *testing.T) {
		store := newTestDesireStore(t)
		d := sampleDesire("d1", "Tidy notes", base)
		require.NoError(t, store.Save(ctx, "ana", d))

		err := store.MoveStatus(ctx, "ana", d, desire.StatusApproved, desire.StatusExecuting)
		require.ErrorIs(t, err, desire.ErrInvalidTransition)

		err = store.MoveStatus(ctx, "ana", sampleDesire("ghost", "x", base), desire.StatusNascent, desire.StatusPending)
		require.ErrorIs(t, err, desire.ErrNotFound)
	})

	t.Run("metrics", func(t *testing.T) {
		store := newTestDesireStore(t)

		for range 3 {
			require.NoError(t, store.IncrementMetric(ctx, "ana", desire.MetricGenerated))
		}
		require.NoError(t, store.IncrementMetric(ctx, "ben", desire.MetricGenerated))

		m, err := store.Metrics(ctx, "ana")
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{desire.MetricGenerated: 3}, m)
	})
}
