// Package engine runs the desire lifecycle: generation, nurture, activation
// and plan execution. Each component operates on one user's namespace at a
// time through an explicit Scope; the Runner owns the per-user loop and the
// single-instance agent locks.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/yearn/internal/core/classify"
	"github.com/colonyops/yearn/internal/core/config"
	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/eventbus"
	"github.com/colonyops/yearn/internal/core/signal"
)

// Agent names. They double as lock names.
const (
	AgentGenerator = "desire-generator"
	AgentEvaluator = "desire-evaluator"
	AgentExecutor  = "desire-executor"
)

// Agents lists every agent in pass order.
var Agents = []string{AgentGenerator, AgentEvaluator, AgentExecutor}

const (
	// MinNascentAge is how long a desire may stay nascent before it is
	// promoted to pending regardless of strength.
	MinNascentAge = 5 * time.Minute

	// RejectedLookback bounds which rejected desires count for deduplication.
	RejectedLookback = 30 * 24 * time.Hour
)

// Scope is the per-user context threaded through one pass. Nothing about
// the user lives anywhere else.
type Scope struct {
	User   string
	Config config.Engine
}

func (s Scope) event() eventbus.Scope {
	return eventbus.Scope{User: s.User}
}

// Counts tallies what a pass did, keyed by metric name.
type Counts map[string]int

// Add merges o into c.
func (c Counts) Add(o Counts) {
	for k, v := range o {
		c[k] += v
	}
}

// Gatherer reads signals for a user.
type Gatherer interface {
	Gather(ctx context.Context, user string, kinds []signal.Kind) (signal.Signals, error)
}

// tally increments a metric both in the pass counts and in the store. Store
// failures are logged; a counter is never worth failing a pass over.
type tally struct {
	store  desire.Store
	log    zerolog.Logger
	counts Counts
}

func newTally(store desire.Store, log zerolog.Logger) *tally {
	return &tally{store: store, log: log, counts: Counts{}}
}

func (t *tally) inc(ctx context.Context, user, metric string) {
	t.counts[metric]++
	if err := t.store.IncrementMetric(ctx, user, metric); err != nil {
		t.log.Warn().Ctx(ctx).Err(err).Str("metric", metric).Msg("failed to increment metric")
	}
}

func gather(ctx context.Context, g Gatherer, sc Scope) (signal.Signals, error) {
	kinds := signal.KindsFor(sc.Config.SourceEnabled)
	if len(kinds) == 0 {
		return signal.Signals{}, nil
	}
	return g.Gather(ctx, sc.User, kinds)
}

func summaries(ds []desire.Desire) []classify.Summary {
	out := make([]classify.Summary, 0, len(ds))
	for _, d := range ds {
		out = append(out, classify.Summarize(d))
	}
	return out
}
