package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/yearn/internal/core/config"
	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/plan"
	"github.com/colonyops/yearn/pkg/executil"
	"github.com/colonyops/yearn/pkg/tmpl"
)

const maxResultLen = 4000

// StepRunner runs plan steps by looking up the step's skill in the configured
// skill table and executing its command template. A zero exit status is
// success; stdout becomes the step result.
type StepRunner struct {
	exec     executil.Executor
	renderer *tmpl.Renderer
	skills   map[string]config.Skill
}

var _ plan.StepRunner = (*StepRunner)(nil)

// NewStepRunner creates a runner over the skill table.
func NewStepRunner(exec executil.Executor, renderer *tmpl.Renderer, skills map[string]config.Skill) *StepRunner {
	return &StepRunner{exec: exec, renderer: renderer, skills: skills}
}

// ForUser returns a runner whose templates see user through the user function.
func (r *StepRunner) ForUser(user string) plan.StepRunner {
	cp := *r
	cp.renderer = r.renderer.WithUser(user)
	return &cp
}

// RunStep implements plan.StepRunner. Unknown skills and command failures
// are reported as unsuccessful results rather than errors.
func (r *StepRunner) RunStep(ctx context.Context, step desire.PlanStep, d desire.Desire) (plan.StepResult, error) {
	skill, ok := r.skills[step.Skill]
	if !ok {
		return plan.StepResult{Error: fmt.Sprintf("unknown skill %q", step.Skill)}, nil
	}

	inputs := step.Inputs
	if inputs == nil {
		inputs = map[string]any{}
	}

	script, err := r.renderer.Render(skill.Command, config.SkillTemplateData{
		Desire: map[string]any{
			"id":          d.ID,
			"title":       d.Title,
			"description": d.Description,
			"reason":      d.Reason,
			"source":      string(d.Source),
			"risk":        string(d.Risk),
		},
		Step: map[string]any{
			"order":             step.Order,
			"action":            step.Action,
			"skill":             step.Skill,
			"requires_approval": step.RequiresApproval,
		},
		Inputs: inputs,
	})
	if err != nil {
		return plan.StepResult{Error: fmt.Sprintf("render skill %q: %v", step.Skill, err)}, nil
	}

	if skill.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, skill.Timeout)
		defer cancel()
	}

	out, err := executil.Sh(ctx, r.exec, script)
	if err != nil {
		return plan.StepResult{Error: err.Error(), Result: truncate(out)}, nil
	}
	return plan.StepResult{Success: true, Result: truncate(out)}, nil
}

func truncate(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > maxResultLen {
		s = s[:maxResultLen]
	}
	return s
}
