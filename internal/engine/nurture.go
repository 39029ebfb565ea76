package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/yearn/internal/core/classify"
	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/eventbus"
)

// Nurture applies one run of reinforcement or decay to every nascent and
// pending desire.
type Nurture struct {
	store      desire.Store
	signals    Gatherer
	classifier classify.Classifier
	bus        *eventbus.EventBus
	log        zerolog.Logger
	now        func() time.Time
}

// NewNurture creates a nurture cycle.
func NewNurture(
	store desire.Store,
	signals Gatherer,
	classifier classify.Classifier,
	bus *eventbus.EventBus,
	log zerolog.Logger,
) *Nurture {
	return &Nurture{
		store:      store,
		signals:    signals,
		classifier: classifier,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
}

// Run nurtures one user's desires. Each desire is either reinforced or
// decayed, never both. A classifier failure leaves the whole batch
// untouched for this run. With no signals every desire decays and the
// classifier is not called.
func (n *Nurture) Run(ctx context.Context, sc Scope) (Counts, error) {
	t := newTally(n.store, n.log)

	batch, err := desire.ListByStatuses(ctx, n.store, sc.User, desire.StatusNascent, desire.StatusPending)
	if err != nil {
		return t.counts, fmt.Errorf("list nurturable desires: %w", err)
	}
	if len(batch) == 0 {
		return t.counts, nil
	}

	sigs, err := gather(ctx, n.signals, sc)
	if err != nil {
		return t.counts, err
	}

	reinforced := map[string]string{}
	if !sigs.Empty() {
		reinforced, err = n.classifier.ClassifyReinforcement(ctx, classify.ReinforceRequest{
			User:    sc.User,
			Desires: summaries(batch),
			Signals: sigs,
		})
		if err != nil {
			n.log.Warn().Ctx(ctx).Err(err).Int("desires", len(batch)).Msg("reinforcement classification failed, skipping run")
			return t.counts, nil
		}
	}

	now := n.now()
	params := sc.Config.Thresholds.Decay

	for _, d := range batch {
		if err := ctx.Err(); err != nil {
			return t.counts, err
		}

		before := d.Strength
		reason, ok := reinforced[d.ID]

		floored := false
		if ok {
			d.Strength = desire.Reinforce(d.Strength, params.ReinforcementBoost)
			d.Reinforcements++
			if reason != "" {
				d.SetMeta(desire.MetaReinforcedBy, reason)
			}
		} else {
			rate := d.DecayRate
			if rate <= 0 {
				rate = params.Rate
			}
			d.Strength, floored = desire.Decay(d.Strength, rate, params.MinStrength)
		}

		d.RunCount++
		d.LastReviewedAt = now
		d.UpdatedAt = now

		if floored {
			n.abandon(ctx, sc, t, d, before, now)
			continue
		}

		if err := n.store.Update(ctx, sc.User, d); err != nil {
			if errors.Is(err, desire.ErrStale) {
				n.log.Info().Ctx(ctx).Str("desire_id", d.ID).Msg("desire changed during nurture, skipping")
				continue
			}
			n.log.Warn().Ctx(ctx).Err(err).Str("desire_id", d.ID).Msg("failed to save nurtured desire")
			continue
		}

		if ok {
			t.inc(ctx, sc.User, desire.MetricReinforced)
			n.bus.PublishDesireReinforced(eventbus.DesireReinforcedPayload{
				Scope:    sc.event(),
				DesireID: d.ID,
				Title:    d.Title,
				Before:   before,
				After:    d.Strength,
				Reason:   reason,
			})
			n.log.Debug().Ctx(ctx).
				Str("desire_id", d.ID).
				Float64("before", before).
				Float64("after", d.Strength).
				Msg("desire reinforced")
			continue
		}

		t.inc(ctx, sc.User, desire.MetricDecayed)
		n.bus.PublishDesireDecayed(eventbus.DesireDecayedPayload{
			Scope:    sc.event(),
			DesireID: d.ID,
			Title:    d.Title,
			Before:   before,
			After:    d.Strength,
		})
	}

	return t.counts, nil
}

func (n *Nurture) abandon(ctx context.Context, sc Scope, t *tally, d desire.Desire, before float64, now time.Time) {
	from := d.Status
	if err := d.Transition(desire.StatusAbandoned, now); err != nil {
		n.log.Error().Ctx(ctx).Err(err).Str("desire_id", d.ID).Msg("cannot abandon desire")
		return
	}
	if err := n.store.MoveStatus(ctx, sc.User, d, from, desire.StatusAbandoned); err != nil {
		n.log.Warn().Ctx(ctx).Err(err).Str("desire_id", d.ID).Msg("failed to abandon desire")
		return
	}

	t.inc(ctx, sc.User, desire.MetricDecayed)
	t.inc(ctx, sc.User, desire.MetricAbandoned)
	n.bus.PublishDesireDecayed(eventbus.DesireDecayedPayload{
		Scope:    sc.event(),
		DesireID: d.ID,
		Title:    d.Title,
		Before:   before,
		After:    d.Strength,
	})
	n.bus.PublishDesireAbandoned(eventbus.DesireAbandonedPayload{
		Scope:    sc.event(),
		DesireID: d.ID,
		Title:    d.Title,
		Before:   before,
		After:    d.Strength,
	})
	n.log.Info().Ctx(ctx).
		Str("desire_id", d.ID).
		Str("title", d.Title).
		Float64("before", before).
		Float64("after", d.Strength).
		Msg("desire abandoned")
}
