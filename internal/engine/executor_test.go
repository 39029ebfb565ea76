package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/eventbus"
	"github.com/colonyops/yearn/internal/core/eventbus/testbus"
	"github.com/colonyops/yearn/internal/core/plan"
)

// scriptedRunner returns a preset result per skill and records what ran.
type scriptedRunner struct {
	mu      sync.Mutex
	results map[string]plan.StepResult
	errs    map[string]error
	ran     []int
}

func (r *scriptedRunner) RunStep(_ context.Context, step desire.PlanStep, _ desire.Desire) (plan.StepResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, step.Order)
	if err := r.errs[step.Skill]; err != nil {
		return plan.StepResult{}, err
	}
	return r.results[step.Skill], nil
}

func (r *scriptedRunner) forUser(string) plan.StepRunner { return r }

func newExecutor(t *testing.T, store desire.Store, runner *scriptedRunner) (*Executor, *testbus.Bus) {
	t.Helper()
	bus := testbus.New(t)
	e := NewExecutor(store, runner.forUser, bus.EventBus, nop())
	e.now = fixed(t0)
	return e, bus
}

func approvedWith(steps ...desire.PlanStep) func(d *desire.Desire) {
	return func(d *desire.Desire) {
		d.Status = desire.StatusApproved
		if steps != nil {
			d.Plan = &desire.Plan{Steps: steps}
		}
	}
}

func TestExecutor_FailFast(t *testing.T) {
	store := newStore()
	d := seed(t, store, "ana", "Three steps", approvedWith(
		desire.PlanStep{Order: 1, Action: "draft", Skill: "ok"},
		desire.PlanStep{Order: 2, Action: "send", Skill: "fail"},
		desire.PlanStep{Order: 3, Action: "archive", Skill: "ok"},
	))

	runner := &scriptedRunner{results: map[string]plan.StepResult{
		"ok":   {Success: true, Result: "done"},
		"fail": {Success: false, Error: "smtp refused"},
	}}
	e, bus := newExecutor(t, store, runner)

	counts, err := e.Run(context.Background(), testScope("ana"))
	require.NoError(t, err)
	assert.Equal(t, 1, counts[desire.MetricFailed])

	assert.Equal(t, []int{1, 2}, runner.ran, "step 3 never runs")

	got := get(t, store, "ana", d.ID)
	assert.Equal(t, desire.StatusFailed, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.Execution)

	exec := got.Execution
	assert.Equal(t, desire.ExecutionFailed, exec.Status)
	assert.Equal(t, 1, exec.StepsCompleted)
	require.Len(t, exec.StepResults, 2)
	assert.True(t, exec.StepResults[0].Success)
	assert.Equal(t, "done", exec.StepResults[0].Result)
	assert.False(t, exec.StepResults[1].Success)
	assert.Equal(t, 2, exec.StepResults[1].StepOrder)
	assert.Contains(t, exec.Error, "smtp refused")
	assert.Nil(t, exec.CurrentStep)
	require.NotNil(t, exec.CompletedAt)

	bus.AssertPublished(t, eventbus.EventDesireExecuted)
	p := bus.Payloads(eventbus.EventDesireExecuted)[0].(eventbus.DesireExecutedPayload)
	assert.Equal(t, desire.ExecutionFailed, p.Status)
	assert.Equal(t, 1, p.StepsCompleted)
	assert.Equal(t, 3, p.TotalSteps)
}

func TestExecutor_Completes(t *testing.T) {
	store := newStore()
	d := seed(t, store, "ana", "Two steps", approvedWith(
		desire.PlanStep{Order: 2, Skill: "ok"},
		desire.PlanStep{Order: 1, Skill: "ok"},
	))

	runner := &scriptedRunner{results: map[string]plan.StepResult{"ok": {Success: true}}}
	e, _ := newExecutor(t, store, runner)

	counts, err := e.Run(context.Background(), testScope("ana"))
	require.NoError(t, err)
	assert.Equal(t, 1, counts[desire.MetricCompleted])
	assert.Equal(t, []int{1, 2}, runner.ran, "steps run in order")

	got := get(t, store, "ana", d.ID)
	assert.Equal(t, desire.StatusCompleted, got.Status)
	assert.Equal(t, desire.ExecutionCompleted, got.Execution.Status)
	assert.Equal(t, 2, got.Execution.StepsCompleted)
	assert.Empty(t, got.Execution.Error)
}

func TestExecutor_MissingPlanFails(t *testing.T) {
	store := newStore()
	d := seed(t, store, "ana", "No plan", approvedWith())

	runner := &scriptedRunner{}
	e, _ := newExecutor(t, store, runner)

	_, err := e.Run(context.Background(), testScope("ana"))
	require.NoError(t, err)
	assert.Empty(t, runner.ran)

	got := get(t, store, "ana", d.ID)
	assert.Equal(t, desire.StatusFailed, got.Status)
	assert.Equal(t, desire.ErrNoPlan.Error(), got.Execution.Error)
	assert.Empty(t, got.Execution.StepResults)
}

func TestExecutor_RunnerErrorFailsStep(t *testing.T) {
	store := newStore()
	d := seed(t, store, "ana", "Broken skill", approvedWith(
		desire.PlanStep{Order: 1, Skill: "boom"},
		desire.PlanStep{Order: 2, Skill: "ok"},
	))

	runner := &scriptedRunner{
		results: map[string]plan.StepResult{"ok": {Success: true}},
		errs:    map[string]error{"boom": errors.New("exec format error")},
	}
	e, _ := newExecutor(t, store, runner)

	_, err := e.Run(context.Background(), testScope("ana"))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, runner.ran)

	got := get(t, store, "ana", d.ID)
	assert.Equal(t, desire.StatusFailed, got.Status)
	assert.Contains(t, got.Execution.Error, "exec format error")
}

func TestExecutor_IndependentDesires(t *testing.T) {
	store := newStore()
	bad := seed(t, store, "ana", "Bad", approvedWith(desire.PlanStep{Order: 1, Skill: "fail"}))
	good := seed(t, store, "ana", "Good", approvedWith(desire.PlanStep{Order: 1, Skill: "ok"}))
	pending := seed(t, store, "ana", "Pending", func(d *desire.Desire) { d.Status = desire.StatusPending })

	runner := &scriptedRunner{results: map[string]plan.StepResult{
		"ok":   {Success: true},
		"fail": {Error: "nope"},
	}}
	e, _ := newExecutor(t, store, runner)

	_, err := e.Run(context.Background(), testScope("ana"))
	require.NoError(t, err)

	assert.Equal(t, desire.StatusFailed, get(t, store, "ana", bad.ID).Status)
	assert.Equal(t, desire.StatusCompleted, get(t, store, "ana", good.ID).Status)
	assert.Equal(t, pending, get(t, store, "ana", pending.ID))
}

func TestExecutor_ExecuteSingle(t *testing.T) {
	store := newStore()
	d := seed(t, store, "ana", "Single", approvedWith(desire.PlanStep{Order: 1, Skill: "ok"}))

	runner := &scriptedRunner{results: map[string]plan.StepResult{"ok": {Success: true, Result: "fine"}}}
	e, _ := newExecutor(t, store, runner)

	got, err := e.Execute(context.Background(), testScope("ana"), d)
	require.NoError(t, err)
	assert.Equal(t, desire.StatusCompleted, got.Status)
	assert.Equal(t, got, get(t, store, "ana", d.ID))

	_, err = e.Execute(context.Background(), testScope("ana"), got)
	require.ErrorIs(t, err, desire.ErrInvalidTransition, "completed desires cannot run again")
}
