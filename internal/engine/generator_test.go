package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/yearn/internal/core/config"
	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/eventbus"
	"github.com/colonyops/yearn/internal/core/eventbus/testbus"
)

func newGenerator(t *testing.T, store desire.Store, cls *fakeClassifier, sigs staticSignals) (*Generator, *testbus.Bus) {
	t.Helper()
	bus := testbus.New(t)
	g := NewGenerator(store, sigs, cls, bus.EventBus, nop())
	g.now = fixed(t0)
	return g, bus
}

func TestGenerator_CreatesNascentDesires(t *testing.T) {
	store := newStore()
	cls := &fakeClassifier{candidates: []desire.Candidate{
		{Title: "Tidy the notes folder", Source: desire.SourceTask, Risk: desire.RiskLow, SuggestedAction: "sort by topic"},
		{Title: "Gossip about neighbours", Source: "gossip"},
	}}
	g, bus := newGenerator(t, store, cls, staticSignals{"ana": someSignals()})

	counts, err := g.Run(context.Background(), testScope("ana"))
	require.NoError(t, err)
	assert.Equal(t, 1, counts[desire.MetricGenerated])

	got, err := store.ListByStatus(context.Background(), "ana", desire.StatusNascent)
	require.NoError(t, err)
	require.Len(t, got, 1)

	d := got[0]
	assert.Equal(t, "Tidy the notes folder", d.Title)
	assert.InDelta(t, 0.05, d.Strength, 1e-9, "candidate strength is ignored")
	assert.InDelta(t, 0.8, d.BaseWeight, 1e-9)
	assert.InDelta(t, 0.7, d.Threshold, 1e-9)
	assert.Equal(t, 0, d.Reinforcements)
	assert.Equal(t, 1, d.RunCount)
	assert.Equal(t, desire.TrustSuggest, d.RequiredTrustLevel)
	assert.Equal(t, "sort by topic", d.GetMeta(desire.MetaSuggestedAction))
	assert.Equal(t, []string{"task", "low"}, d.Tags)

	metrics, err := store.Metrics(context.Background(), "ana")
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics[desire.MetricGenerated])

	bus.AssertPublished(t, eventbus.EventDesireCreated)

	require.Len(t, cls.genReqs, 1)
	assert.Equal(t, 5, cls.genReqs[0].Max)
	assert.NotContains(t, cls.genReqs[0].Sources, desire.SourceDream, "dream is disabled by default")
}

func TestGenerator_DisabledSourceUsesDefaultWeight(t *testing.T) {
	store := newStore()
	cls := &fakeClassifier{candidates: []desire.Candidate{
		{Title: "Dream of flying", Source: desire.SourceDream},
		{Title: "Ask about tides", Source: desire.SourceCuriosity},
	}}
	g, _ := newGenerator(t, store, cls, staticSignals{"ana": someSignals()})

	sc := testScope("ana")
	sc.Config.Sources[desire.SourceCuriosity] = config.SourceSettings{Enabled: true}

	counts, err := g.Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[desire.MetricGenerated])

	got, err := store.ListByStatus(context.Background(), "ana", desire.StatusNascent)
	require.NoError(t, err)
	require.Len(t, got, 2)

	weights := map[string]float64{}
	for _, d := range got {
		weights[d.Title] = d.BaseWeight
	}
	assert.InDelta(t, 0.3, weights["Dream of flying"], 1e-9, "disabled source")
	assert.InDelta(t, 0.5, weights["Ask about tides"], 1e-9, "unweighted source")
}

func TestGenerator_DeduplicatesBySubstring(t *testing.T) {
	store := newStore()
	seed(t, store, "ana", "Organize project notes", func(d *desire.Desire) { d.Status = desire.StatusPending })

	cls := &fakeClassifier{candidates: []desire.Candidate{
		{Title: "project notes", Source: desire.SourceTask},
	}}
	g, _ := newGenerator(t, store, cls, staticSignals{"ana": someSignals()})

	counts, err := g.Run(context.Background(), testScope("ana"))
	require.NoError(t, err)
	assert.Zero(t, counts[desire.MetricGenerated])

	nascent, err := store.ListByStatus(context.Background(), "ana", desire.StatusNascent)
	require.NoError(t, err)
	assert.Empty(t, nascent)
}

func TestGenerator_DeduplicatesWithinBatch(t *testing.T) {
	store := newStore()
	cls := &fakeClassifier{candidates: []desire.Candidate{
		{Title: "Learn Go generics", Source: desire.SourceCuriosity},
		{Title: "learn go generics", Source: desire.SourceCuriosity},
	}}
	g, _ := newGenerator(t, store, cls, staticSignals{"ana": someSignals()})

	counts, err := g.Run(context.Background(), testScope("ana"))
	require.NoError(t, err)
	assert.Equal(t, 1, counts[desire.MetricGenerated])
}

func TestGenerator_RecentlyRejected(t *testing.T) {
	store := newStore()
	seed(t, store, "ana", "Learn Rust", func(d *desire.Desire) {
		d.Status = desire.StatusRejected
		d.UpdatedAt = t0.Add(-10 * 24 * time.Hour)
	})
	seed(t, store, "ana", "Bake bread", func(d *desire.Desire) {
		d.Status = desire.StatusRejected
		d.UpdatedAt = t0.Add(-40 * 24 * time.Hour)
	})

	cls := &fakeClassifier{candidates: []desire.Candidate{
		{Title: "learn rust", Source: desire.SourceCuriosity},
		{Title: "Bake bread", Source: desire.SourceCuriosity},
	}}
	g, _ := newGenerator(t, store, cls, staticSignals{"ana": someSignals()})

	_, err := g.Run(context.Background(), testScope("ana"))
	require.NoError(t, err)

	nascent, err := store.ListByStatus(context.Background(), "ana", desire.StatusNascent)
	require.NoError(t, err)
	require.Len(t, nascent, 1)
	assert.Equal(t, "Bake bread", nascent[0].Title)

	require.Len(t, cls.genReqs[0].Rejected, 1)
	assert.Equal(t, "Learn Rust", cls.genReqs[0].Rejected[0].Title)
}

func TestGenerator_SkipsWithoutSignals(t *testing.T) {
	store := newStore()
	cls := &fakeClassifier{candidates: []desire.Candidate{{Title: "never", Source: desire.SourceTask}}}
	g, bus := newGenerator(t, store, cls, staticSignals{})

	counts, err := g.Run(context.Background(), testScope("ana"))
	require.NoError(t, err)
	assert.Equal(t, 1, counts[desire.MetricGenerationSkipped])
	assert.Empty(t, cls.genReqs, "classifier must not run without signals")

	bus.AssertPublished(t, eventbus.EventGenerationSkipped)
	payloads := bus.Payloads(eventbus.EventGenerationSkipped)
	require.Len(t, payloads, 1)
	assert.Equal(t, SkipNoSignals, payloads[0].(eventbus.GenerationSkippedPayload).Reason)
}

func TestGenerator_SkipsAtCapacity(t *testing.T) {
	store := newStore()
	seed(t, store, "ana", "One", nil)
	seed(t, store, "ana", "Two", func(d *desire.Desire) { d.Status = desire.StatusExecuting })
	seed(t, store, "ana", "Done", func(d *desire.Desire) { d.Status = desire.StatusCompleted })

	sc := testScope("ana")
	sc.Config.Limits.MaxActiveDesires = 1
	sc.Config.Limits.MaxPendingDesires = 1

	cls := &fakeClassifier{}
	g, _ := newGenerator(t, store, cls, staticSignals{"ana": someSignals()})

	counts, err := g.Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[desire.MetricGenerationSkipped])
	assert.Empty(t, cls.genReqs)
}

func TestGenerator_CapsToRemainingCapacity(t *testing.T) {
	store := newStore()
	seed(t, store, "ana", "Existing", nil)

	sc := testScope("ana")
	sc.Config.Limits.MaxActiveDesires = 2
	sc.Config.Limits.MaxPendingDesires = 1

	cls := &fakeClassifier{candidates: []desire.Candidate{
		{Title: "Alpha", Source: desire.SourceTask},
		{Title: "Bravo", Source: desire.SourceTask},
		{Title: "Charlie", Source: desire.SourceTask},
		{Title: "Delta", Source: desire.SourceTask},
	}}
	g, _ := newGenerator(t, store, cls, staticSignals{"ana": someSignals()})

	counts, err := g.Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[desire.MetricGenerated])
	assert.Equal(t, 2, cls.genReqs[0].Max)
}

func TestGenerator_ClassifierFailureIsNotFatal(t *testing.T) {
	store := newStore()
	cls := &fakeClassifier{genErr: errors.New("model unavailable")}
	g, _ := newGenerator(t, store, cls, staticSignals{"ana": someSignals()})

	counts, err := g.Run(context.Background(), testScope("ana"))
	require.NoError(t, err)
	assert.Zero(t, counts[desire.MetricGenerated])
}
