// Package plan defines the contract with the capability that runs a single
// plan step.
package plan

import (
	"context"
	"fmt"
	"slices"

	"github.com/colonyops/yearn/internal/core/desire"
)

// StepResult is the outcome reported by a StepRunner.
type StepResult struct {
	Success bool
	Result  string
	Error   string
}

// StepRunner executes one plan step on behalf of a desire. A returned error is
// treated the same as an unsuccessful result.
type StepRunner interface {
	RunStep(ctx context.Context, step desire.PlanStep, d desire.Desire) (StepResult, error)
}

// StepRunnerFunc adapts a function to StepRunner.
type StepRunnerFunc func(ctx context.Context, step desire.PlanStep, d desire.Desire) (StepResult, error)

func (f StepRunnerFunc) RunStep(ctx context.Context, step desire.PlanStep, d desire.Desire) (StepResult, error) {
	return f(ctx, step, d)
}

// Validate checks that p has at least one step and that step orders are
// unique and 1-based. Steps may be listed in any order; they run sorted.
func Validate(p *desire.Plan) error {
	if p == nil || len(p.Steps) == 0 {
		return desire.ErrNoPlan
	}

	steps := Ordered(p)
	if first := steps[0].Order; first != 1 {
		return fmt.Errorf("plan must start at order 1, lowest is %d", first)
	}
	for i, s := range steps {
		if i > 0 && s.Order == steps[i-1].Order {
			return fmt.Errorf("order %d is used by more than one step", s.Order)
		}
		if s.Skill == "" {
			return fmt.Errorf("step %d: skill is required", s.Order)
		}
	}
	return nil
}

// Ordered returns the steps sorted by Order.
func Ordered(p *desire.Plan) []desire.PlanStep {
	if p == nil {
		return nil
	}
	steps := slices.Clone(p.Steps)
	slices.SortStableFunc(steps, func(a, b desire.PlanStep) int { return a.Order - b.Order })
	return steps
}
