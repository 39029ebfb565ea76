package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/eventbus"
)

// Activator promotes aged nascent desires and stamps desires whose effective
// strength crosses their threshold, subject to the active-desire cap.
type Activator struct {
	store desire.Store
	bus   *eventbus.EventBus
	log   zerolog.Logger
	now   func() time.Time
}

// NewActivator creates an activator.
func NewActivator(store desire.Store, bus *eventbus.EventBus, log zerolog.Logger) *Activator {
	return &Activator{store: store, bus: bus, log: log, now: time.Now}
}

// Run promotes then activates one user's desires. Desires are evaluated
// oldest first; once the cap is reached the rest wait for the next pass.
func (a *Activator) Run(ctx context.Context, sc Scope) (Counts, error) {
	t := newTally(a.store, a.log)
	now := a.now()

	candidates, err := desire.ListByStatuses(ctx, a.store, sc.User, desire.StatusNascent, desire.StatusPending)
	if err != nil {
		return t.counts, fmt.Errorf("list activation candidates: %w", err)
	}
	held, err := desire.ListByStatuses(ctx, a.store, sc.User, desire.StatusApproved, desire.StatusExecuting)
	if err != nil {
		return t.counts, fmt.Errorf("list active desires: %w", err)
	}

	slices.SortStableFunc(candidates, func(x, y desire.Desire) int {
		return x.CreatedAt.Compare(y.CreatedAt)
	})

	for i := range candidates {
		d := &candidates[i]
		if d.Status != desire.StatusNascent || d.Age(now) < MinNascentAge {
			continue
		}
		if a.move(ctx, sc, d, desire.StatusPending, now) {
			t.inc(ctx, sc.User, desire.MetricPromoted)
			a.bus.PublishDesirePromoted(eventbus.DesirePromotedPayload{
				Scope:    sc.event(),
				DesireID: d.ID,
				Title:    d.Title,
				Age:      d.Age(now),
			})
		}
	}

	active := len(held)
	for _, d := range candidates {
		if d.IsActivated() {
			active++
		}
	}

	limit := sc.Config.Limits.MaxActiveDesires
	deferred := 0
	for i := range candidates {
		d := &candidates[i]
		if d.IsActivated() || d.EffectiveStrength() < d.Threshold {
			continue
		}
		if active >= limit {
			deferred++
			continue
		}

		stamp := now
		d.ActivatedAt = &stamp

		ok := false
		if d.Status == desire.StatusNascent {
			ok = a.move(ctx, sc, d, desire.StatusPending, now)
		} else {
			d.UpdatedAt = now
			if err := a.store.Update(ctx, sc.User, *d); err != nil {
				a.log.Warn().Ctx(ctx).Err(err).Str("desire_id", d.ID).Msg("failed to save activated desire")
			} else {
				ok = true
			}
		}
		if !ok {
			d.ActivatedAt = nil
			continue
		}

		active++
		t.inc(ctx, sc.User, desire.MetricActivated)
		a.bus.PublishDesireActivated(eventbus.DesireActivatedPayload{
			Scope:             sc.event(),
			DesireID:          d.ID,
			Title:             d.Title,
			EffectiveStrength: d.EffectiveStrength(),
			Threshold:         d.Threshold,
		})
		a.log.Info().Ctx(ctx).
			Str("desire_id", d.ID).
			Str("title", d.Title).
			Float64("effective_strength", d.EffectiveStrength()).
			Float64("threshold", d.Threshold).
			Msg("desire activated")
	}

	if deferred > 0 {
		a.log.Info().Ctx(ctx).Int("deferred", deferred).Int("limit", limit).Msg("active desire cap reached")
	}

	return t.counts, nil
}

// move transitions d in memory and in the store. On failure d keeps its
// previous status.
func (a *Activator) move(ctx context.Context, sc Scope, d *desire.Desire, to desire.Status, now time.Time) bool {
	prev := *d
	from := d.Status
	if err := d.Transition(to, now); err != nil {
		a.log.Error().Ctx(ctx).Err(err).Str("desire_id", d.ID).Msg("invalid transition")
		return false
	}
	if err := a.store.MoveStatus(ctx, sc.User, *d, from, to); err != nil {
		a.log.Warn().Ctx(ctx).Err(err).Str("desire_id", d.ID).Msg("failed to move desire")
		*d = prev
		return false
	}
	return true
}
