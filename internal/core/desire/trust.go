package desire

import "fmt"

// Risk grades how much damage acting on a desire could cause.
type Risk string

const (
	RiskNone     Risk = "none"
	RiskLow      Risk = "low"
	RiskMedium   Risk = "medium"
	RiskHigh     Risk = "high"
	RiskCritical Risk = "critical"
)

// ParseRisk normalizes a risk string; unknown values map to RiskMedium.
func ParseRisk(s string) Risk {
	switch r := Risk(s); r {
	case RiskNone, RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return r
	}
	return RiskMedium
}

// TrustLevel is the autonomy an agent must hold to act on a desire.
type TrustLevel string

const (
	TrustSuggest        TrustLevel = "suggest"
	TrustSupervisedAuto TrustLevel = "supervised_auto"
	TrustBoundedAuto    TrustLevel = "bounded_auto"
)

var trustRank = map[TrustLevel]int{
	TrustSuggest:        0,
	TrustSupervisedAuto: 1,
	TrustBoundedAuto:    2,
}

// ParseTrustLevel converts a string into a TrustLevel.
func ParseTrustLevel(s string) (TrustLevel, error) {
	t := TrustLevel(s)
	if _, ok := trustRank[t]; !ok {
		return "", fmt.Errorf("unknown trust level %q", s)
	}
	return t, nil
}

// TrustFor derives the required trust level from risk.
func TrustFor(r Risk) TrustLevel {
	switch r {
	case RiskNone, RiskLow:
		return TrustSuggest
	case RiskMedium:
		return TrustSupervisedAuto
	default:
		return TrustBoundedAuto
	}
}

// Allows reports whether holding t is enough to satisfy required.
func (t TrustLevel) Allows(required TrustLevel) bool {
	return trustRank[t] >= trustRank[required]
}
