package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/yearn/internal/core/config"
	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/eventbus"
	"github.com/colonyops/yearn/internal/core/kv"
	"github.com/colonyops/yearn/internal/core/lock"
	"github.com/colonyops/yearn/internal/core/logging"
)

// RunRecord is written to KV after each agent pass for a user.
type RunRecord struct {
	Agent      string    `json:"agent"`
	User       string    `json:"user"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Counts     Counts    `json:"counts,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Duration is how long the pass took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunRecords returns the typed KV view holding an agent's run records,
// keyed by user.
func RunRecords(store kv.KV, agent string) *kv.TypedKV[RunRecord] {
	return kv.Scoped[RunRecord](store, "runs:"+agent)
}

// RunnerOptions wires a Runner.
type RunnerOptions struct {
	Store     desire.Store
	Locker    lock.Locker
	KV        kv.KV
	Bus       *eventbus.EventBus
	Users     func(ctx context.Context) ([]string, error)
	Engine    func(user string) (config.Engine, error)
	Generator *Generator
	Nurture   *Nurture
	Activator *Activator
	Executor  *Executor
	LockTTL   time.Duration
}

// Runner walks users one at a time and runs agent passes for each. Every
// pass is guarded by the agent's single-instance lock; a pass that finds
// the lock held returns immediately without touching any state.
type Runner struct {
	opts RunnerOptions
	log  zerolog.Logger
	now  func() time.Time
}

// NewRunner creates a runner.
func NewRunner(opts RunnerOptions, log zerolog.Logger) *Runner {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	return &Runner{opts: opts, log: log, now: time.Now}
}

// ForUsers returns a runner restricted to users. With no users it returns r.
func (r *Runner) ForUsers(users ...string) *Runner {
	if len(users) == 0 {
		return r
	}
	cp := *r
	cp.opts.Users = func(context.Context) ([]string, error) { return users, nil }
	return &cp
}

type userPass func(ctx context.Context, sc Scope) (Counts, error)

// Cycle runs generation followed by evaluation (nurture, then activation).
func (r *Runner) Cycle(ctx context.Context) error {
	return errors.Join(r.Generate(ctx), r.Evaluate(ctx))
}

// Generate runs the generator agent for every user.
func (r *Runner) Generate(ctx context.Context) error {
	return r.run(ctx, AgentGenerator, r.opts.Generator.Run)
}

// Evaluate runs the evaluator agent (nurture, then activation) for every user.
func (r *Runner) Evaluate(ctx context.Context) error {
	return r.run(ctx, AgentEvaluator, r.evaluate)
}

// Execute runs the executor agent for every user.
func (r *Runner) Execute(ctx context.Context) error {
	return r.run(ctx, AgentExecutor, r.opts.Executor.Run)
}

// Scope builds the pass scope for a single user.
func (r *Runner) Scope(user string) (Scope, error) {
	eng, err := r.opts.Engine(user)
	if err != nil {
		return Scope{}, err
	}
	return Scope{User: user, Config: eng}, nil
}

func (r *Runner) evaluate(ctx context.Context, sc Scope) (Counts, error) {
	counts, nurtureErr := r.opts.Nurture.Run(ctx, sc)
	if err := ctx.Err(); err != nil {
		return counts, err
	}

	activated, activateErr := r.opts.Activator.Run(ctx, sc)
	counts.Add(activated)

	if nurtureErr == nil && activateErr == nil {
		counts[desire.MetricCyclesRun]++
		if err := r.opts.Store.IncrementMetric(ctx, sc.User, desire.MetricCyclesRun); err != nil {
			r.log.Warn().Ctx(ctx).Err(err).Msg("failed to increment metric")
		}
	}

	return counts, errors.Join(nurtureErr, activateErr)
}

func (r *Runner) run(ctx context.Context, agent string, pass userPass) error {
	ctx = logging.WithAgent(ctx, agent)

	release, err := r.opts.Locker.Acquire(ctx, agent, r.opts.LockTTL)
	if errors.Is(err, lock.ErrHeld) {
		r.log.Info().Ctx(ctx).Msg("agent already running, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("acquire %s lock: %w", agent, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			r.log.Warn().Ctx(ctx).Err(err).Msg("failed to release lock")
		}
	}()

	users, err := r.opts.Users(ctx)
	if err != nil {
		return fmt.Errorf("resolve users: %w", err)
	}

	failed := 0
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runUser(ctx, agent, user, pass); err != nil {
			failed++
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%s: %d of %d users failed", agent, failed, len(users))
	}
	return nil
}

// runUser runs one pass inside a context scoped to user. The scoped
// context is discarded when the pass returns.
func (r *Runner) runUser(ctx context.Context, agent, user string, pass userPass) error {
	ctx = logging.WithUser(ctx, user)

	rec := RunRecord{Agent: agent, User: user, StartedAt: r.now()}

	sc, err := r.Scope(user)
	if err == nil {
		rec.Counts, err = pass(ctx, sc)
	}
	rec.FinishedAt = r.now()

	if err != nil {
		rec.Error = err.Error()
		r.log.Error().Ctx(ctx).Err(err).Msg("pass failed")
	} else {
		r.log.Debug().Ctx(ctx).
			Dur("took", rec.Duration()).
			Interface("counts", rec.Counts).
			Msg("pass finished")
	}

	if r.opts.KV != nil {
		if kvErr := RunRecords(r.opts.KV, agent).Set(context.WithoutCancel(ctx), user, rec); kvErr != nil {
			r.log.Warn().Ctx(ctx).Err(kvErr).Msg("failed to write run record")
		}
	}

	r.opts.Bus.PublishCycleCompleted(eventbus.CycleCompletedPayload{
		Scope:    eventbus.Scope{User: user},
		Agent:    agent,
		Duration: rec.Duration(),
		Err:      rec.Error,
	})

	return err
}
