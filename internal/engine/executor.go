package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/eventbus"
	"github.com/colonyops/yearn/internal/core/plan"
)

// StepRunnerFor returns the step runner to use for a user's desires.
type StepRunnerFor func(user string) plan.StepRunner

// Executor runs the plans of approved desires, one step at a time, stopping
// at the first failing step.
type Executor struct {
	store   desire.Store
	runners StepRunnerFor
	bus     *eventbus.EventBus
	log     zerolog.Logger
	now     func() time.Time
}

// NewExecutor creates an executor.
func NewExecutor(store desire.Store, runners StepRunnerFor, bus *eventbus.EventBus, log zerolog.Logger) *Executor {
	return &Executor{store: store, runners: runners, bus: bus, log: log, now: time.Now}
}

// Run executes every approved desire for one user. A failing desire does not
// stop the others.
func (e *Executor) Run(ctx context.Context, sc Scope) (Counts, error) {
	counts := Counts{}

	approved, err := e.store.ListByStatus(ctx, sc.User, desire.StatusApproved)
	if err != nil {
		return counts, fmt.Errorf("list approved desires: %w", err)
	}

	runner := e.runners(sc.User)
	var errs []error
	for _, d := range approved {
		if err := ctx.Err(); err != nil {
			return counts, err
		}

		_, c, err := e.execute(ctx, sc, runner, d)
		counts.Add(c)
		if err != nil {
			e.log.Warn().Ctx(ctx).Err(err).Str("desire_id", d.ID).Msg("desire execution not recorded")
			errs = append(errs, err)
		}
	}

	return counts, errors.Join(errs...)
}

// Execute runs a single approved desire and returns it in its final state.
func (e *Executor) Execute(ctx context.Context, sc Scope, d desire.Desire) (desire.Desire, error) {
	out, _, err := e.execute(ctx, sc, e.runners(sc.User), d)
	return out, err
}

func (e *Executor) execute(ctx context.Context, sc Scope, runner plan.StepRunner, d desire.Desire) (desire.Desire, Counts, error) {
	t := newTally(e.store, e.log)

	started := e.now()
	if err := d.Transition(desire.StatusExecuting, started); err != nil {
		return d, t.counts, err
	}
	d.Execution = &desire.Execution{
		StartedAt:   started,
		Status:      desire.ExecutionInProgress,
		StepResults: []desire.StepResult{},
	}
	if err := e.store.MoveStatus(ctx, sc.User, d, desire.StatusApproved, desire.StatusExecuting); err != nil {
		return d, t.counts, fmt.Errorf("start execution: %w", err)
	}

	e.log.Info().Ctx(ctx).Str("desire_id", d.ID).Str("title", d.Title).Msg("executing desire")

	total := 0
	if err := plan.Validate(d.Plan); err != nil {
		d.Execution.Status = desire.ExecutionFailed
		d.Execution.Error = err.Error()
	} else {
		total = len(d.Plan.Steps)
		e.runSteps(ctx, sc, runner, &d)
	}

	finished := e.now()
	d.Execution.CompletedAt = &finished
	d.Execution.CurrentStep = nil

	to, metric := desire.StatusCompleted, desire.MetricCompleted
	if d.Execution.Status != desire.ExecutionCompleted {
		to, metric = desire.StatusFailed, desire.MetricFailed
	}
	if err := d.Transition(to, finished); err != nil {
		return d, t.counts, err
	}

	// The outcome is recorded even when the pass was cancelled mid-plan.
	ctx = context.WithoutCancel(ctx)
	if err := e.store.MoveStatus(ctx, sc.User, d, desire.StatusExecuting, to); err != nil {
		return d, t.counts, fmt.Errorf("finish execution: %w", err)
	}

	t.inc(ctx, sc.User, metric)
	e.bus.PublishDesireExecuted(eventbus.DesireExecutedPayload{
		Scope:          sc.event(),
		DesireID:       d.ID,
		Title:          d.Title,
		Status:         d.Execution.Status,
		StepsCompleted: d.Execution.StepsCompleted,
		TotalSteps:     total,
		Error:          d.Execution.Error,
	})

	evt := e.log.Info()
	if to == desire.StatusFailed {
		evt = e.log.Warn()
	}
	evt.Ctx(ctx).
		Str("desire_id", d.ID).
		Str("status", string(to)).
		Int("steps_completed", d.Execution.StepsCompleted).
		Int("steps", total).
		Str("error", d.Execution.Error).
		Msg("desire execution finished")

	return d, t.counts, nil
}

// runSteps drives the plan. The trace is saved after every step so an
// interrupted process leaves a record of how far it got.
func (e *Executor) runSteps(ctx context.Context, sc Scope, runner plan.StepRunner, d *desire.Desire) {
	exec := d.Execution
	for _, step := range plan.Ordered(d.Plan) {
		order := step.Order
		exec.CurrentStep = &order

		res, err := e.runStep(ctx, runner, step, *d)
		if err != nil {
			res = plan.StepResult{Error: err.Error()}
		}

		exec.StepResults = append(exec.StepResults, desire.StepResult{
			StepOrder:   step.Order,
			Success:     res.Success,
			Result:      res.Result,
			Error:       res.Error,
			CompletedAt: e.now(),
		})

		if !res.Success {
			msg := res.Error
			if msg == "" {
				msg = "step reported failure"
			}
			exec.Status = desire.ExecutionFailed
			exec.Error = fmt.Sprintf("step %d (%s): %s", step.Order, step.Skill, msg)
			return
		}

		exec.StepsCompleted++
		d.UpdatedAt = e.now()
		if err := e.store.Save(ctx, sc.User, *d); err != nil {
			e.log.Warn().Ctx(ctx).Err(err).Str("desire_id", d.ID).Int("step", step.Order).Msg("failed to save step progress")
		}
	}

	exec.Status = desire.ExecutionCompleted
}

func (e *Executor) runStep(ctx context.Context, runner plan.StepRunner, step desire.PlanStep, d desire.Desire) (plan.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return plan.StepResult{}, err
	}
	return runner.RunStep(ctx, step, d)
}
