package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts user and agent from context and adds them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if user := GetUser(ctx); user != "" {
		e.Str("user", user)
	}

	if agent := GetAgent(ctx); agent != "" {
		e.Str("agent", agent)
	}
}
