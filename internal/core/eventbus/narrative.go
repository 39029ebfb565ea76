package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// NarrativeRecorder turns desire events into first-person "inner dialogue"
// lines on a dedicated logger.
type NarrativeRecorder struct {
	bus     *EventBus
	logger  zerolog.Logger
	enabled func(user string) bool
}

// NewNarrativeRecorder constructs a recorder. enabled reports whether a user
// has inner-dialogue logging switched on; nil means always.
func NewNarrativeRecorder(bus *EventBus, logger zerolog.Logger, enabled func(user string) bool) *NarrativeRecorder {
	if enabled == nil {
		enabled = func(string) bool { return true }
	}
	return &NarrativeRecorder{bus: bus, logger: logger, enabled: enabled}
}

// Register subscribes all supported event mappings.
func (r *NarrativeRecorder) Register() {
	if r == nil || r.bus == nil {
		return
	}

	r.bus.SubscribeDesireCreated(func(p DesireCreatedPayload) {
		r.writef(p.User, "desire", "I notice a new want: %q (%s).", p.Desire.Title, p.Desire.Reason)
	})

	r.bus.SubscribeDesireReinforced(func(p DesireReinforcedPayload) {
		r.writef(p.User, "desire", "%q grows stronger (%.2f -> %.2f): %s", p.Title, p.Before, p.After, p.Reason)
	})

	r.bus.SubscribeDesireAbandoned(func(p DesireAbandonedPayload) {
		r.writef(p.User, "desire", "I let go of %q; it faded away (%.2f -> %.2f).", p.Title, p.Before, p.After)
	})

	r.bus.SubscribeDesireActivated(func(p DesireActivatedPayload) {
		r.writef(p.User, "desire", "%q feels pressing enough to act on (%.2f >= %.2f).",
			p.Title, p.EffectiveStrength, p.Threshold)
	})

	r.bus.SubscribeDesireRejected(func(p DesireRejectedPayload) {
		r.writef(p.User, "desire", "%q was turned down: %s", p.Title, p.Reason)
	})

	r.bus.SubscribeDesireExecuted(func(p DesireExecutedPayload) {
		if p.Error != "" {
			r.writef(p.User, "action", "I tried to pursue %q but stopped after %d/%d steps: %s",
				p.Title, p.StepsCompleted, p.TotalSteps, p.Error)
			return
		}
		r.writef(p.User, "action", "I pursued %q and finished all %d steps.", p.Title, p.TotalSteps)
	})
}

func (r *NarrativeRecorder) writef(user, kind, format string, args ...any) {
	if !r.enabled(user) {
		return
	}
	r.logger.Info().
		Str("user", user).
		Str("kind", kind).
		Msg(fmt.Sprintf(format, args...))
}
