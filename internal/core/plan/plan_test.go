package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/yearn/internal/core/desire"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    *desire.Plan
		wantErr string
	}{
		{name: "nil", plan: nil, wantErr: "no plan"},
		{name: "empty", plan: &desire.Plan{}, wantErr: "no plan"},
		{
			name: "valid",
			plan: &desire.Plan{Steps: []desire.PlanStep{{Order: 1, Skill: "a"}, {Order: 2, Skill: "b"}}},
		},
		{
			name: "listed out of order",
			plan: &desire.Plan{Steps: []desire.PlanStep{{Order: 2, Skill: "b"}, {Order: 1, Skill: "a"}}},
		},
		{
			name:    "zero order",
			plan:    &desire.Plan{Steps: []desire.PlanStep{{Order: 0, Skill: "a"}, {Order: 1, Skill: "b"}}},
			wantErr: "lowest is 0",
		},
		{
			name:    "does not start at one",
			plan:    &desire.Plan{Steps: []desire.PlanStep{{Order: 2, Skill: "a"}, {Order: 3, Skill: "b"}}},
			wantErr: "lowest is 2",
		},
		{
			name:    "repeated order",
			plan:    &desire.Plan{Steps: []desire.PlanStep{{Order: 1, Skill: "a"}, {Order: 1, Skill: "b"}}},
			wantErr: "order 1 is used by more than one step",
		},
		{
			name:    "missing skill",
			plan:    &desire.Plan{Steps: []desire.PlanStep{{Order: 1}}},
			wantErr: "skill is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.plan)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOrdered(t *testing.T) {
	p := &desire.Plan{Steps: []desire.PlanStep{{Order: 3}, {Order: 1}, {Order: 2}}}
	got := Ordered(p)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].Order, got[1].Order, got[2].Order})
	assert.Equal(t, 3, p.Steps[0].Order, "input untouched")
}
