// Package signal models the read-only inputs desires are generated from.
package signal

import (
	"context"
	"time"

	"github.com/colonyops/yearn/internal/core/desire"
)

// Kind is a category of signal.
type Kind string

const (
	KindGoals       Kind = "goals"
	KindTasks       Kind = "tasks"
	KindMemories    Kind = "memories"
	KindQuestions   Kind = "questions"
	KindReflections Kind = "reflections"
	KindDreams      Kind = "dreams"
)

// AllKinds lists every kind in gathering order.
var AllKinds = []Kind{KindGoals, KindTasks, KindMemories, KindQuestions, KindReflections, KindDreams}

var kindSources = map[Kind][]desire.Source{
	KindGoals:       {desire.SourcePersonaGoal},
	KindTasks:       {desire.SourceUrgentTask, desire.SourceTask},
	KindMemories:    {desire.SourceMemoryPattern},
	KindQuestions:   {desire.SourceCuriosity},
	KindReflections: {desire.SourceReflection},
	KindDreams:      {desire.SourceDream},
}

// Sources returns the desire sources a kind can produce.
func (k Kind) Sources() []desire.Source {
	return kindSources[k]
}

// KindsFor returns the kinds needed to feed at least one enabled source.
func KindsFor(enabled func(desire.Source) bool) []Kind {
	var out []Kind
	for _, k := range AllKinds {
		for _, src := range kindSources[k] {
			if enabled(src) {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// Signal is a single item read from a provider.
type Signal struct {
	ID        string            `json:"id"        yaml:"id"`
	Kind      Kind              `json:"kind"      yaml:"-"`
	Title     string            `json:"title"     yaml:"title"`
	Body      string            `json:"body,omitempty" yaml:"body"`
	Urgent    bool              `json:"urgent,omitempty" yaml:"urgent"`
	Tags      []string          `json:"tags,omitempty" yaml:"tags"`
	Extra     map[string]string `json:"extra,omitempty" yaml:"extra"`
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"`
}

// Signals groups gathered signals by kind. Each list is newest first.
type Signals map[Kind][]Signal

// Len returns the total number of signals across all kinds.
func (s Signals) Len() int {
	n := 0
	for _, items := range s {
		n += len(items)
	}
	return n
}

// Empty reports whether nothing was gathered.
func (s Signals) Empty() bool {
	return s.Len() == 0
}

// Provider reads one kind of signal for a user. Providers must be safe for
// concurrent use and must not modify what they read.
type Provider interface {
	Kind() Kind
	// Fetch returns at most limit signals, newest first.
	Fetch(ctx context.Context, user string, limit int) ([]Signal, error)
}
