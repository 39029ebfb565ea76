package eventbus_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/yearn/internal/core/desire"
	"github.com/colonyops/yearn/internal/core/eventbus"
	"github.com/colonyops/yearn/internal/core/eventbus/testbus"
)

func TestRegisterDebugLogger(t *testing.T) {
	tb := testbus.New(t)

	eventbus.RegisterDebugLogger(tb.EventBus, zerolog.Nop())

	tb.PublishDesireCreated(eventbus.DesireCreatedPayload{
		Scope:  eventbus.Scope{User: "ana"},
		Desire: desire.Desire{ID: "d1", Title: "Tidy notes"},
	})
	tb.PublishGenerationSkipped(eventbus.GenerationSkippedPayload{Reason: "capacity"})

	tb.AssertPublished(t, eventbus.EventGenerationSkipped)
	tb.AssertPublished(t, eventbus.EventDesireCreated)
}

func TestEventBus_PanickingSubscriber(t *testing.T) {
	bus := eventbus.New(8)

	var panics int
	bus.OnPanic(func(eventbus.Event, any, any) { panics++ })

	var got []string
	bus.SubscribeDesireApproved(func(eventbus.DesireApprovedPayload) { panic("boom") })
	bus.SubscribeDesireApproved(func(p eventbus.DesireApprovedPayload) { got = append(got, p.DesireID) })

	bus.PublishDesireApproved(eventbus.DesireApprovedPayload{DesireID: "d1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Start(ctx)

	assert.Equal(t, []string{"d1"}, got, "later subscribers still run")
	assert.Equal(t, 1, panics)
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := eventbus.New(1)

	var dropped []eventbus.Event
	bus.OnDrop(func(e eventbus.Event, _ any) { dropped = append(dropped, e) })

	bus.PublishDesireDecayed(eventbus.DesireDecayedPayload{DesireID: "a"})
	bus.PublishDesireDecayed(eventbus.DesireDecayedPayload{DesireID: "b"})

	assert.Equal(t, []eventbus.Event{eventbus.EventDesireDecayed}, dropped)
}

func TestEventBus_StartDrainsOnCancel(t *testing.T) {
	bus := eventbus.New(8)

	var count int
	bus.SubscribeDesireDecayed(func(eventbus.DesireDecayedPayload) { count++ })
	for range 3 {
		bus.PublishDesireDecayed(eventbus.DesireDecayedPayload{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		bus.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.Equal(t, 3, count)
}

func TestNarrativeRecorder(t *testing.T) {
	tb := testbus.New(t)

	var buf lockedBuffer
	logger := zerolog.New(&buf)
	rec := eventbus.NewNarrativeRecorder(tb.EventBus, logger, func(user string) bool { return user == "ana" })
	rec.Register()

	tb.PublishDesireExecuted(eventbus.DesireExecutedPayload{
		Scope:      eventbus.Scope{User: "ben"},
		Title:      "Quiet",
		TotalSteps: 1,
	})
	tb.PublishDesireExecuted(eventbus.DesireExecutedPayload{
		Scope:          eventbus.Scope{User: "ana"},
		Title:          "Organize project notes",
		StepsCompleted: 1,
		TotalSteps:     2,
		Error:          "skill failed",
	})

	require.Eventually(t, func() bool { return strings.Contains(buf.String(), "stopped after 1/2") },
		500*time.Millisecond, 5*time.Millisecond)
	assert.NotContains(t, buf.String(), "Quiet")
	assert.Contains(t, buf.String(), `"user":"ana"`)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
