package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/yearn/internal/core/classify"
	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/eventbus"
)

// Reasons reported when generation is skipped.
const (
	SkipAtCapacity = "at capacity"
	SkipNoSources  = "no sources enabled"
	SkipNoSignals  = "no signals gathered"
)

// inFlight are the statuses that occupy generation capacity.
var inFlight = []desire.Status{
	desire.StatusNascent,
	desire.StatusPending,
	desire.StatusApproved,
	desire.StatusExecuting,
}

// Generator turns gathered signals into new nascent desires.
type Generator struct {
	store      desire.Store
	signals    Gatherer
	classifier classify.Classifier
	bus        *eventbus.EventBus
	log        zerolog.Logger
	now        func() time.Time
}

// NewGenerator creates a generator.
func NewGenerator(
	store desire.Store,
	signals Gatherer,
	classifier classify.Classifier,
	bus *eventbus.EventBus,
	log zerolog.Logger,
) *Generator {
	return &Generator{
		store:      store,
		signals:    signals,
		classifier: classifier,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
}

// Run generates desires for one user. Classifier failures are logged and
// produce nothing; only store reads and cancellation return errors.
func (g *Generator) Run(ctx context.Context, sc Scope) (Counts, error) {
	t := newTally(g.store, g.log)
	now := g.now()

	active, err := desire.ListByStatuses(ctx, g.store, sc.User, inFlight...)
	if err != nil {
		return t.counts, fmt.Errorf("list in-flight desires: %w", err)
	}

	remaining := sc.Config.Capacity() - len(active)
	if remaining <= 0 {
		g.skip(ctx, sc, t, SkipAtCapacity)
		return t.counts, nil
	}

	var sources []desire.Source
	for _, src := range desire.AllSources {
		if sc.Config.SourceEnabled(src) {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		g.skip(ctx, sc, t, SkipNoSources)
		return t.counts, nil
	}

	sigs, err := gather(ctx, g.signals, sc)
	if err != nil {
		return t.counts, err
	}
	if sigs.Empty() {
		g.skip(ctx, sc, t, SkipNoSignals)
		return t.counts, nil
	}

	rejected, err := g.recentlyRejected(ctx, sc.User, now)
	if err != nil {
		return t.counts, err
	}

	limit := min(remaining, classify.MaxCandidates)
	candidates, err := g.classifier.GenerateCandidates(ctx, classify.GenerateRequest{
		User:     sc.User,
		Sources:  sources,
		Signals:  sigs,
		Active:   summaries(active),
		Rejected: summaries(rejected),
		Max:      limit,
	})
	if err != nil {
		g.log.Warn().Ctx(ctx).Err(err).Msg("candidate generation failed")
		return t.counts, nil
	}

	titles := make([]string, 0, len(active)+len(rejected))
	for _, d := range active {
		titles = append(titles, d.Title)
	}
	for _, d := range rejected {
		titles = append(titles, d.Title)
	}

	created := 0
	for _, c := range candidates {
		if created >= limit {
			break
		}

		if !c.Source.Valid() {
			g.log.Debug().Ctx(ctx).Str("title", c.Title).Str("source", string(c.Source)).Msg("dropping candidate from unknown source")
			continue
		}
		if desire.IsDuplicateTitle(c.Title, titles) {
			g.log.Debug().Ctx(ctx).Str("title", c.Title).Msg("dropping duplicate candidate")
			continue
		}

		d := desire.NewFromCandidate(c, sc.Config.DesireParams(c.Source), now)
		if err := g.store.Save(ctx, sc.User, d); err != nil {
			g.log.Warn().Ctx(ctx).Err(err).Str("title", d.Title).Msg("failed to save desire")
			continue
		}

		titles = append(titles, d.Title)
		created++
		t.inc(ctx, sc.User, desire.MetricGenerated)
		g.bus.PublishDesireCreated(eventbus.DesireCreatedPayload{Scope: sc.event(), Desire: d})
		g.log.Info().Ctx(ctx).
			Str("desire_id", d.ID).
			Str("title", d.Title).
			Str("source", string(d.Source)).
			Msg("desire created")
	}

	return t.counts, nil
}

func (g *Generator) skip(ctx context.Context, sc Scope, t *tally, reason string) {
	g.log.Debug().Ctx(ctx).Str("reason", reason).Msg("generation skipped")
	t.inc(ctx, sc.User, desire.MetricGenerationSkipped)
	g.bus.PublishGenerationSkipped(eventbus.GenerationSkippedPayload{Scope: sc.event(), Reason: reason})
}

func (g *Generator) recentlyRejected(ctx context.Context, user string, now time.Time) ([]desire.Desire, error) {
	all, err := g.store.ListByStatus(ctx, user, desire.StatusRejected)
	if err != nil {
		return nil, fmt.Errorf("list rejected desires: %w", err)
	}

	cutoff := now.Add(-RejectedLookback)
	out := all[:0]
	for _, d := range all {
		if d.UpdatedAt.After(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}
