package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/caseflow/pkg/models"
)

// ErrHandlerNotConfigured is returned when a known action kind has no handler bound.
var ErrHandlerNotConfigured = errors.New("no handler configured for action type")

// Executor runs a single action by dispatching on its kind.
type Executor struct {
	logger   *slog.Logger
	handlers Handlers
}

// NewExecutor creates an executor bound to the given handlers.
func NewExecutor(logger *slog.Logger, handlers Handlers) *Executor {
	return &Executor{
		logger:   logger.With("module", "action_executor"),
		handlers: handlers,
	}
}

// Execute interpolates the action configuration with eventData and invokes the
// handler for the action's kind.
func (e *Executor) Execute(ctx context.Context, action models.WorkflowAction, eventData map[string]any) (any, error) {
	handler, err := e.handlerFor(action.Type)
	if err != nil {
		return nil, err
	}

	config := Interpolate(action.Config, eventData)

	e.logger.DebugContext(ctx, "Executing action", "action_type", action.Type)

	return handler.Handle(ctx, config, eventData)
}

func (e *Executor) handlerFor(actionType models.ActionType) (Handler, error) {
	var handler Handler

	switch actionType {
	case models.ActionSendEmail:
		handler = e.handlers.Email
	case models.ActionCreateTask:
		handler = e.handlers.Task
	case models.ActionUpdateCase:
		handler = e.handlers.Case
	case models.ActionGenerateDocument:
		handler = e.handlers.Document
	case models.ActionCreateCalendarEvent:
		handler = e.handlers.Calendar
	case models.ActionSendNotification:
		handler = e.handlers.Notification
	case models.ActionRunScript:
		handler = e.handlers.Script
	case models.ActionWebhook:
		handler = e.handlers.Webhook
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownActionType, actionType)
	}

	if handler == nil {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotConfigured, actionType)
	}

	return handler, nil
}
