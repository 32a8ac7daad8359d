// Package actions executes workflow actions through per-kind handlers.
package actions

import "context"

// Handler is the boundary implementation behind one action kind. It receives
// the action's interpolated configuration and the live event data.
type Handler interface {
	Handle(ctx context.Context, config map[string]any, eventData map[string]any) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, config map[string]any, eventData map[string]any) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, config map[string]any, eventData map[string]any) (any, error) {
	return f(ctx, config, eventData)
}

// Handlers binds one handler to each action kind. A nil field makes that
// kind fail at execution time.
type Handlers struct {
	Email        Handler
	Task         Handler
	Case         Handler
	Document     Handler
	Calendar     Handler
	Notification Handler
	Script       Handler
	Webhook      Handler
}
