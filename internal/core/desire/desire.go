// Package desire defines the desire domain model: the record itself, its
// lifecycle state machine, strength dynamics and the persistence contract.
package desire

import (
	"time"
)

// Source identifies which kind of signal a desire was synthesized from.
type Source string

const (
	SourcePersonaGoal   Source = "persona_goal"
	SourceUrgentTask    Source = "urgent_task"
	SourceTask          Source = "task"
	SourceMemoryPattern Source = "memory_pattern"
	SourceCuriosity     Source = "curiosity"
	SourceReflection    Source = "reflection"
	SourceDream         Source = "dream"
)

// AllSources lists every known source in a stable order.
var AllSources = []Source{
	SourcePersonaGoal,
	SourceUrgentTask,
	SourceTask,
	SourceMemoryPattern,
	SourceCuriosity,
	SourceReflection,
	SourceDream,
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	for _, known := range AllSources {
		if s == known {
			return true
		}
	}
	return false
}

// Metadata keys stored in Desire.Metadata.
const (
	MetaSuggestedAction = "suggested_action"
	MetaReinforcedBy    = "last_reinforced_by"
	MetaRejectedReason  = "rejected_reason"
)

// Desire is a candidate intention with a strength-based lifecycle.
//
// Strength starts low and must be earned through reinforcement across nurture
// runs. Threshold and BaseWeight are fixed at creation.
type Desire struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Reason      string `json:"reason"`

	Source   Source `json:"source"`
	SourceID string `json:"source_id,omitempty"`

	Strength       float64 `json:"strength"`
	BaseWeight     float64 `json:"base_weight"`
	Threshold      float64 `json:"threshold"`
	DecayRate      float64 `json:"decay_rate"`
	Reinforcements int     `json:"reinforcements"`
	RunCount       int     `json:"run_count"`

	Risk               Risk       `json:"risk"`
	RequiredTrustLevel TrustLevel `json:"required_trust_level"`

	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ActivatedAt    *time.Time `json:"activated_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	LastReviewedAt time.Time  `json:"last_reviewed_at"`

	Plan      *Plan      `json:"plan,omitempty"`
	Execution *Execution `json:"execution,omitempty"`

	Tags     []string          `json:"tags,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Plan is the ordered list of steps attached once a desire is approved.
type Plan struct {
	Steps []PlanStep `json:"steps"`
}

// PlanStep is one unit of work in a plan. Order is 1-based and strictly
// increasing within a plan.
type PlanStep struct {
	Order            int            `json:"order"`
	Action           string         `json:"action"`
	Skill            string         `json:"skill"`
	Inputs           map[string]any `json:"inputs,omitempty"`
	RequiresApproval bool           `json:"requires_approval"`
}

// ExecutionStatus is the state of a plan execution.
type ExecutionStatus string

const (
	ExecutionInProgress ExecutionStatus = "in_progress"
	ExecutionCompleted  ExecutionStatus = "completed"
	ExecutionFailed     ExecutionStatus = "failed"
)

// Execution is the trace of running a desire's plan.
type Execution struct {
	StartedAt      time.Time       `json:"started_at"`
	Status         ExecutionStatus `json:"status"`
	CurrentStep    *int            `json:"current_step,omitempty"`
	StepsCompleted int             `json:"steps_completed"`
	StepResults    []StepResult    `json:"step_results"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// StepResult records the outcome of a single plan step.
type StepResult struct {
	StepOrder   int       `json:"step_order"`
	Success     bool      `json:"success"`
	Result      string    `json:"result,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// EffectiveStrength is strength scaled by the source base weight. It is the
// value compared against Threshold for activation.
func (d Desire) EffectiveStrength() float64 {
	return d.Strength * d.BaseWeight
}

// IsTerminal reports whether the desire has reached a terminal status.
func (d Desire) IsTerminal() bool {
	return d.Status.IsTerminal()
}

// IsActivated reports whether the desire has been stamped by activation.
func (d Desire) IsActivated() bool {
	return d.ActivatedAt != nil
}

// GetMeta returns the value for the given metadata key, or empty string if not set.
func (d Desire) GetMeta(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// SetMeta sets a metadata key-value pair, initializing the map if needed.
func (d *Desire) SetMeta(key, value string) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]string)
	}
	d.Metadata[key] = value
}

// Transition moves the desire to next, stamping UpdatedAt. Terminal targets
// also stamp CompletedAt. Returns ErrInvalidTransition for edges outside the
// state machine.
func (d *Desire) Transition(next Status, now time.Time) error {
	if !CanTransition(d.Status, next) {
		return &TransitionError{From: d.Status, To: next}
	}
	d.Status = next
	d.UpdatedAt = now
	if next.IsTerminal() {
		t := now
		d.CompletedAt = &t
	}
	return nil
}

// Age returns how long ago the desire was created.
func (d Desire) Age(now time.Time) time.Duration {
	return now.Sub(d.CreatedAt)
}
