package config

import (
	"fmt"
	"maps"

	"github.com/colonyops/yearn/internal/core/desire"
)

// Engine holds the per-user tuning of the desire lifecycle.
type Engine struct {
	Thresholds Thresholds                       `yaml:"thresholds"`
	Limits     Limits                           `yaml:"limits"`
	Sources    map[desire.Source]SourceSettings `yaml:"sources"`
	Logging    EngineLogging                    `yaml:"logging"`
}

// Thresholds groups activation and strength-dynamics parameters.
type Thresholds struct {
	Activation float64 `yaml:"activation"`
	Decay      Decay   `yaml:"decay"`
}

// Decay configures per-run decay and reinforcement.
type Decay struct {
	Rate               float64 `yaml:"rate"`
	MinStrength        float64 `yaml:"min_strength"`
	ReinforcementBoost float64 `yaml:"reinforcement_boost"`
	InitialStrength    float64 `yaml:"initial_strength"`
}

// Limits caps how many desires may be in flight.
type Limits struct {
	MaxActiveDesires  int `yaml:"max_active_desires"`
	MaxPendingDesires int `yaml:"max_pending_desires"`
}

// SourceSettings enables a signal source and weights desires born from it.
type SourceSettings struct {
	Enabled bool    `yaml:"enabled"`
	Weight  float64 `yaml:"weight"`
}

// EngineLogging toggles narrative side channels.
type EngineLogging struct {
	LogToInnerDialogue bool `yaml:"log_to_inner_dialogue"`
}

// DefaultSourceWeights is the static fallback weight table used when a source
// is disabled or carries no weight in config.
var DefaultSourceWeights = map[desire.Source]float64{
	desire.SourcePersonaGoal:   1.0,
	desire.SourceUrgentTask:    0.95,
	desire.SourceTask:          0.8,
	desire.SourceMemoryPattern: 0.6,
	desire.SourceCuriosity:     0.5,
	desire.SourceReflection:    0.55,
	desire.SourceDream:         0.3,
}

// DefaultEngine returns the engine defaults.
func DefaultEngine() Engine {
	sources := make(map[desire.Source]SourceSettings, len(DefaultSourceWeights))
	for src, w := range DefaultSourceWeights {
		sources[src] = SourceSettings{Enabled: src != desire.SourceDream, Weight: w}
	}

	return Engine{
		Thresholds: Thresholds{
			Activation: 0.7,
			Decay: Decay{
				Rate:               0.02,
				MinStrength:        0.01,
				ReinforcementBoost: 0.1,
				InitialStrength:    0.05,
			},
		},
		Limits: Limits{
			MaxActiveDesires:  3,
			MaxPendingDesires: 10,
		},
		Sources: sources,
		Logging: EngineLogging{LogToInnerDialogue: true},
	}
}

// applyDefaults only restores the source table. Numeric fields are decoded
// over DefaultEngine, so an explicit zero in YAML is kept as written.
func (e *Engine) applyDefaults() {
	if e.Sources == nil {
		e.Sources = DefaultEngine().Sources
	}
}

func (e Engine) clone() Engine {
	out := e
	out.Sources = maps.Clone(e.Sources)
	return out
}

// Validate checks ranges and orderings of the engine parameters.
func (e *Engine) Validate() error {
	d := e.Thresholds.Decay

	if e.Thresholds.Activation <= 0 || e.Thresholds.Activation > 1 {
		return fmt.Errorf("thresholds.activation must be in (0, 1], got %v", e.Thresholds.Activation)
	}
	if d.Rate <= 0 {
		return fmt.Errorf("thresholds.decay.rate must be positive, got %v", d.Rate)
	}
	if d.ReinforcementBoost <= 0 {
		return fmt.Errorf("thresholds.decay.reinforcement_boost must be positive, got %v", d.ReinforcementBoost)
	}
	if d.MinStrength < 0 || d.MinStrength >= 1 {
		return fmt.Errorf("thresholds.decay.min_strength must be in [0, 1), got %v", d.MinStrength)
	}
	if d.InitialStrength <= d.MinStrength || d.InitialStrength > 1 {
		return fmt.Errorf("thresholds.decay.initial_strength must be in (min_strength, 1], got %v", d.InitialStrength)
	}
	if e.Limits.MaxActiveDesires < 1 {
		return fmt.Errorf("limits.max_active_desires must be at least 1")
	}
	if e.Limits.MaxPendingDesires < 0 {
		return fmt.Errorf("limits.max_pending_desires cannot be negative")
	}

	for src, s := range e.Sources {
		if !src.Valid() {
			return fmt.Errorf("sources: unknown source %q", src)
		}
		if s.Weight < 0 || s.Weight > 1 {
			return fmt.Errorf("sources.%s.weight must be in [0, 1], got %v", src, s.Weight)
		}
	}

	return nil
}

// WeightFor returns the base weight for desires born from src. Disabled or
// unweighted sources fall back to DefaultSourceWeights.
func (e *Engine) WeightFor(src desire.Source) float64 {
	if s, ok := e.Sources[src]; ok && s.Enabled && s.Weight > 0 {
		return s.Weight
	}
	if w, ok := DefaultSourceWeights[src]; ok {
		return w
	}
	return 0.5
}

// SourceEnabled reports whether signals for src should be gathered.
func (e *Engine) SourceEnabled(src desire.Source) bool {
	s, ok := e.Sources[src]
	return ok && s.Enabled
}

// Capacity is the most desires that may be nascent, pending or active at once.
func (e *Engine) Capacity() int {
	return e.Limits.MaxActiveDesires + e.Limits.MaxPendingDesires
}

// DesireParams returns the creation parameters for a desire from src.
func (e *Engine) DesireParams(src desire.Source) desire.Params {
	return desire.Params{
		InitialStrength: e.Thresholds.Decay.InitialStrength,
		MinStrength:     e.Thresholds.Decay.MinStrength,
		BaseWeight:      e.WeightFor(src),
		Threshold:       e.Thresholds.Activation,
		DecayRate:       e.Thresholds.Decay.Rate,
	}
}
