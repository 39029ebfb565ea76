package eventbus

import (
	"time"

	"github.com/colonyops/yearn/internal/core/desire"
)

// Desire lifecycle events. Keep list sorted A-Z.
const (
	EventCycleCompleted    Event = "cycle.completed"
	EventDesireAbandoned   Event = "desire.abandoned"
	EventDesireActivated   Event = "desire.activated"
	EventDesireApproved    Event = "desire.approved"
	EventDesireCreated     Event = "desire.created"
	EventDesireDecayed     Event = "desire.decayed"
	EventDesireExecuted    Event = "desire.executed"
	EventDesirePromoted    Event = "desire.promoted"
	EventDesireReinforced  Event = "desire.reinforced"
	EventDesireRejected    Event = "desire.rejected"
	EventGenerationSkipped Event = "generation.skipped"
)

// Events lists every event the bus carries.
var Events = []Event{
	EventCycleCompleted,
	EventDesireAbandoned,
	EventDesireActivated,
	EventDesireApproved,
	EventDesireCreated,
	EventDesireDecayed,
	EventDesireExecuted,
	EventDesirePromoted,
	EventDesireReinforced,
	EventDesireRejected,
	EventGenerationSkipped,
}

// Scope identifies the user a payload belongs to.
type Scope struct {
	User string
}

// EventUser returns the user the event was raised for.
func (s Scope) EventUser() string { return s.User }

type DesireCreatedPayload struct {
	Scope
	Desire desire.Desire
}

type DesireReinforcedPayload struct {
	Scope
	DesireID string
	Title    string
	Before   float64
	After    float64
	Reason   string
}

type DesireDecayedPayload struct {
	Scope
	DesireID string
	Title    string
	Before   float64
	After    float64
}

type DesireAbandonedPayload struct {
	Scope
	DesireID string
	Title    string
	Before   float64
	After    float64
}

type DesirePromotedPayload struct {
	Scope
	DesireID string
	Title    string
	Age      time.Duration
}

type DesireActivatedPayload struct {
	Scope
	DesireID          string
	Title             string
	EffectiveStrength float64
	Threshold         float64
}

type DesireApprovedPayload struct {
	Scope
	DesireID string
	Title    string
}

type DesireRejectedPayload struct {
	Scope
	DesireID string
	Title    string
	Reason   string
}

type DesireExecutedPayload struct {
	Scope
	DesireID       string
	Title          string
	Status         desire.ExecutionStatus
	StepsCompleted int
	TotalSteps     int
	Error          string
}

type GenerationSkippedPayload struct {
	Scope
	Reason string
}

type CycleCompletedPayload struct {
	Scope
	Agent    string
	Duration time.Duration
	Err      string
}

func subscribeTyped[T any](bus *EventBus, event Event, fn func(T)) {
	bus.subscribe(event, func(v any) {
		if p, ok := v.(T); ok {
			fn(p)
		}
	})
}

func (bus *EventBus) PublishCycleCompleted(p CycleCompletedPayload) {
	bus.send(EventCycleCompleted, p)
}

func (bus *EventBus) SubscribeCycleCompleted(fn func(CycleCompletedPayload)) {
	subscribeTyped(bus, EventCycleCompleted, fn)
}

func (bus *EventBus) PublishDesireAbandoned(p DesireAbandonedPayload) {
	bus.send(EventDesireAbandoned, p)
}

func (bus *EventBus) SubscribeDesireAbandoned(fn func(DesireAbandonedPayload)) {
	subscribeTyped(bus, EventDesireAbandoned, fn)
}

func (bus *EventBus) PublishDesireActivated(p DesireActivatedPayload) {
	bus.send(EventDesireActivated, p)
}

func (bus *EventBus) SubscribeDesireActivated(fn func(DesireActivatedPayload)) {
	subscribeTyped(bus, EventDesireActivated, fn)
}

func (bus *EventBus) PublishDesireApproved(p DesireApprovedPayload) {
	bus.send(EventDesireApproved, p)
}

func (bus *EventBus) SubscribeDesireApproved(fn func(DesireApprovedPayload)) {
	subscribeTyped(bus, EventDesireApproved, fn)
}

func (bus *EventBus) PublishDesireCreated(p DesireCreatedPayload) {
	bus.send(EventDesireCreated, p)
}

func (bus *EventBus) SubscribeDesireCreated(fn func(DesireCreatedPayload)) {
	subscribeTyped(bus, EventDesireCreated, fn)
}

func (bus *EventBus) PublishDesireDecayed(p DesireDecayedPayload) {
	bus.send(EventDesireDecayed, p)
}

func (bus *EventBus) SubscribeDesireDecayed(fn func(DesireDecayedPayload)) {
	subscribeTyped(bus, EventDesireDecayed, fn)
}

func (bus *EventBus) PublishDesireExecuted(p DesireExecutedPayload) {
	bus.send(EventDesireExecuted, p)
}

func (bus *EventBus) SubscribeDesireExecuted(fn func(DesireExecutedPayload)) {
	subscribeTyped(bus, EventDesireExecuted, fn)
}

func (bus *EventBus) PublishDesirePromoted(p DesirePromotedPayload) {
	bus.send(EventDesirePromoted, p)
}

func (bus *EventBus) SubscribeDesirePromoted(fn func(DesirePromotedPayload)) {
	subscribeTyped(bus, EventDesirePromoted, fn)
}

func (bus *EventBus) PublishDesireReinforced(p DesireReinforcedPayload) {
	bus.send(EventDesireReinforced, p)
}

func (bus *EventBus) SubscribeDesireReinforced(fn func(DesireReinforcedPayload)) {
	subscribeTyped(bus, EventDesireReinforced, fn)
}

func (bus *EventBus) PublishDesireRejected(p DesireRejectedPayload) {
	bus.send(EventDesireRejected, p)
}

func (bus *EventBus) SubscribeDesireRejected(fn func(DesireRejectedPayload)) {
	subscribeTyped(bus, EventDesireRejected, fn)
}

func (bus *EventBus) PublishGenerationSkipped(p GenerationSkippedPayload) {
	bus.send(EventGenerationSkipped, p)
}

func (bus *EventBus) SubscribeGenerationSkipped(fn func(GenerationSkippedPayload)) {
	subscribeTyped(bus, EventGenerationSkipped, fn)
}
