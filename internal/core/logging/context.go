package logging

import "context"

type contextKey string

const (
	userKey  contextKey = "user"
	agentKey contextKey = "agent"
)

// WithUser adds the user namespace being processed to the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// WithAgent adds the logical agent name (desire-generator, desire-evaluator,
// desire-executor) to the context.
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, agentKey, agent)
}

// GetUser retrieves the user from the context.
// Returns empty string if not present.
func GetUser(ctx context.Context) string {
	if u, ok := ctx.Value(userKey).(string); ok {
		return u
	}
	return ""
}

// GetAgent retrieves the agent name from the context.
// Returns empty string if not present.
func GetAgent(ctx context.Context) string {
	if a, ok := ctx.Value(agentKey).(string); ok {
		return a
	}
	return ""
}
