// Package classify defines the contract with the opaque model-backed calls
// that propose desires and judge reinforcement.
package classify

import (
	"context"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/signal"
)

// MaxCandidates bounds how many candidates one generation call may yield.
const MaxCandidates = 5

// Summary is the compact view of an existing desire sent to the classifier.
type Summary struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Source      desire.Source `json:"source"`
	Status      desire.Status `json:"status"`
	Strength    float64       `json:"strength"`
}

// Summarize builds the summary for d.
func Summarize(d desire.Desire) Summary {
	return Summary{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Source:      d.Source,
		Status:      d.Status,
		Strength:    d.Strength,
	}
}

// GenerateRequest is the input to GenerateCandidates.
type GenerateRequest struct {
	User     string          `json:"user"`
	Sources  []desire.Source `json:"sources"`
	Signals  signal.Signals  `json:"signals"`
	Active   []Summary       `json:"active"`
	Rejected []Summary       `json:"rejected"`
	Max      int             `json:"max"`
}

// ReinforceRequest is the input to ClassifyReinforcement.
type ReinforceRequest struct {
	User    string         `json:"user"`
	Desires []Summary      `json:"desires"`
	Signals signal.Signals `json:"signals"`
}

// Classifier is implemented by the model-backed collaborator. Implementations
// may be slow and are responsible for their own timeouts. Empty results are
// normal; callers never treat them as failures.
type Classifier interface {
	GenerateCandidates(ctx context.Context, req GenerateRequest) ([]desire.Candidate, error)
	// ClassifyReinforcement returns desire id -> reason for every desire the
	// signals reinforce.
	ClassifyReinforcement(ctx context.Context, req ReinforceRequest) (map[string]string, error)
}
