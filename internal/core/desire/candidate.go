package desire

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Candidate is a proposed desire returned by the generation classifier.
type Candidate struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Reason          string `json:"reason"`
	Source          Source `json:"source"`
	SourceID        string `json:"sourceId,omitempty"`
	Risk            Risk   `json:"risk"`
	SuggestedAction string `json:"suggestedAction,omitempty"`
}

// Params carries the config-derived values stamped onto a new desire.
type Params struct {
	InitialStrength float64
	MinStrength     float64
	BaseWeight      float64
	Threshold       float64
	DecayRate       float64
}

// NewFromCandidate instantiates a nascent desire at the configured initial
// strength. Candidates carry no strength of their own.
func NewFromCandidate(c Candidate, p Params, now time.Time) Desire {
	risk := ParseRisk(string(c.Risk))

	d := Desire{
		ID:                 uuid.NewString(),
		Title:              strings.TrimSpace(c.Title),
		Description:        c.Description,
		Reason:             c.Reason,
		Source:             c.Source,
		SourceID:           c.SourceID,
		Strength:           Clamp(p.InitialStrength, p.MinStrength),
		BaseWeight:         p.BaseWeight,
		Threshold:          p.Threshold,
		DecayRate:          p.DecayRate,
		Reinforcements:     0,
		RunCount:           1,
		Risk:               risk,
		RequiredTrustLevel: TrustFor(risk),
		Status:             StatusNascent,
		CreatedAt:          now,
		UpdatedAt:          now,
		LastReviewedAt:     now,
		Tags:               []string{string(c.Source), string(risk)},
	}

	if c.SuggestedAction != "" {
		d.SetMeta(MetaSuggestedAction, c.SuggestedAction)
	}

	return d
}

// IsDuplicateTitle reports whether title collides with any existing title.
// Titles collide when, lowercased, one equals or contains the other. The
// heuristic is intentionally coarse.
func IsDuplicateTitle(title string, existing []string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return true
	}
	for _, e := range existing {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if t == e || strings.Contains(e, t) || strings.Contains(t, e) {
			return true
		}
	}
	return false
}
