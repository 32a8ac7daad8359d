// Package workflow runs rules against domain events: dispatching an event to
// the matching rules and executing each rule's actions in order.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/caseflow/pkg/eventbus"
	"github.com/dukex/caseflow/pkg/events"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/otelhelper"
	"github.com/dukex/caseflow/pkg/tracker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ActionExecutor performs one action against the event data.
type ActionExecutor interface {
	Execute(ctx context.Context, action models.WorkflowAction, eventData map[string]any) (any, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Runner drives a single rule execution from pending to a terminal state.
type Runner struct {
	logger    *slog.Logger
	executor  ActionExecutor
	tracker   *tracker.Tracker
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	metrics   *Metrics
	sleep     SleepFunc
	now       func() time.Time
}

// NewRunner creates a Runner. publisher may be nil.
func NewRunner(
	logger *slog.Logger,
	executor ActionExecutor,
	tracker *tracker.Tracker,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	metrics *Metrics,
) *Runner {
	return &Runner{
		logger:    logger.With("module", "workflow_runner"),
		executor:  executor,
		tracker:   tracker,
		publisher: publisher,
		tracer:    tracer,
		metrics:   metrics,
		sleep:     sleep,
		now:       time.Now,
	}
}

// Run executes the rule's actions sequentially. The first failing action stops
// the run; actions already applied are not rolled back. If ctx ends before an
// action starts, the execution is cancelled.
func (r *Runner) Run(
	ctx context.Context,
	rule models.WorkflowRule,
	triggerType models.TriggerType,
	eventData map[string]any,
) *models.WorkflowExecution {
	return r.run(ctx, rule, triggerType, eventData, nil)
}

// run is Run with a hook called once the execution is recorded and its
// started event published, before the first action.
func (r *Runner) run(
	ctx context.Context,
	rule models.WorkflowRule,
	triggerType models.TriggerType,
	eventData map[string]any,
	started func(),
) *models.WorkflowExecution {
	execution := &models.WorkflowExecution{
		ID:           uuid.New().String(),
		WorkflowID:   rule.ID,
		TriggerType:  triggerType,
		TriggerData:  models.CloneMap(eventData),
		Status:       models.ExecutionStatusPending,
		StartedAt:    r.now().UTC(),
		ExecutionLog: []models.WorkflowStep{},
	}

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "workflow.run",
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.RuleNameKey, rule.Name),
		attribute.String(otelhelper.TriggerTypeKey, string(triggerType)),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
	)
	defer span.End()

	logger := r.logger.With("rule_id", rule.ID, "execution_id", execution.ID)

	if err := r.tracker.Create(ctx, execution); err != nil {
		logger.ErrorContext(ctx, "Failed to record execution", "error", err)
	}

	execution.Status = models.ExecutionStatusRunning
	r.save(ctx, logger, execution)
	r.publish(ctx, logger, rule.ID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, rule.ID),
		ExecutionID: execution.ID,
		TriggerType: triggerType,
	})

	logger.InfoContext(ctx, "Execution started", "actions", len(rule.Actions))

	if started != nil {
		started()
	}

	for _, action := range rule.Actions {
		if err := r.wait(ctx, action); err != nil {
			r.cancel(ctx, logger, execution, err)

			break
		}

		if err := r.step(ctx, logger, execution, action, eventData); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				r.cancel(ctx, logger, execution, err)
			} else {
				r.fail(ctx, logger, execution, err)
			}

			otelhelper.SetError(span, err, attribute.String(otelhelper.ExecutionIDKey, execution.ID))

			break
		}
	}

	if !execution.Status.IsTerminal() {
		r.finish(ctx, logger, execution, models.ExecutionStatusCompleted)
		otelhelper.SetOK(span)
		logger.InfoContext(ctx, "Execution completed", "steps", len(execution.ExecutionLog))
		r.publish(ctx, logger, rule.ID, events.ExecutionCompleted{
			BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, rule.ID),
			ExecutionID: execution.ID,
			Steps:       len(execution.ExecutionLog),
			Duration:    execution.CompletedAt.Sub(execution.StartedAt),
		})
	}

	span.SetAttributes(attribute.String(otelhelper.StatusKey, string(execution.Status)))
	r.metrics.execution(execution.Status)

	return execution.Clone()
}

func (r *Runner) wait(ctx context.Context, action models.WorkflowAction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if action.Delay <= 0 {
		return nil
	}

	return r.sleep(ctx, time.Duration(action.Delay)*time.Second)
}

func (r *Runner) step(
	ctx context.Context,
	logger *slog.Logger,
	execution *models.WorkflowExecution,
	action models.WorkflowAction,
	eventData map[string]any,
) error {
	execution.ExecutionLog = append(execution.ExecutionLog, models.WorkflowStep{
		StepID:     uuid.New().String(),
		ActionType: action.Type,
		Status:     models.StepStatusRunning,
		Timestamp:  r.now().UTC(),
	})
	index := len(execution.ExecutionLog) - 1
	r.save(ctx, logger, execution)

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "workflow.action",
		attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
		attribute.String(otelhelper.StepIDKey, execution.ExecutionLog[index].StepID),
	)
	defer span.End()

	result, err := r.execute(ctx, action, eventData)

	step := &execution.ExecutionLog[index]
	if err != nil {
		step.Status = models.StepStatusFailed
		step.Error = err.Error()
		otelhelper.SetError(span, err)
		logger.WarnContext(ctx, "Action failed", "action_type", action.Type, "step_id", step.StepID, "error", err)
	} else {
		step.Status = models.StepStatusCompleted
		step.Result = result
		otelhelper.SetOK(span)
		logger.DebugContext(ctx, "Action completed", "action_type", action.Type, "step_id", step.StepID)
	}

	r.metrics.action(action.Type, step.Status)

	return err
}

func (r *Runner) execute(ctx context.Context, action models.WorkflowAction, eventData map[string]any) (result any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("action %s panicked: %v", action.Type, recovered)
		}
	}()

	return r.executor.Execute(ctx, action, eventData)
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, execution *models.WorkflowExecution, err error) {
	execution.ErrorMessage = err.Error()
	r.finish(ctx, logger, execution, models.ExecutionStatusFailed)

	logger.ErrorContext(ctx, "Execution failed", "error", err, "steps", len(execution.ExecutionLog))
	r.publish(ctx, logger, execution.WorkflowID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		Error:       execution.ErrorMessage,
		Steps:       len(execution.ExecutionLog),
		Duration:    execution.CompletedAt.Sub(execution.StartedAt),
	})
}

func (r *Runner) cancel(ctx context.Context, logger *slog.Logger, execution *models.WorkflowExecution, err error) {
	execution.ErrorMessage = err.Error()
	r.finish(ctx, logger, execution, models.ExecutionStatusCancelled)

	logger.WarnContext(ctx, "Execution cancelled", "reason", err, "steps", len(execution.ExecutionLog))
	r.publish(context.WithoutCancel(ctx), logger, execution.WorkflowID, events.ExecutionCancelled{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		Reason:      execution.ErrorMessage,
		Steps:       len(execution.ExecutionLog),
	})
}

func (r *Runner) finish(ctx context.Context, logger *slog.Logger, execution *models.WorkflowExecution, status models.ExecutionStatus) {
	completedAt := r.now().UTC()
	execution.Status = status
	execution.CompletedAt = &completedAt

	r.save(ctx, logger, execution)
}

func (r *Runner) save(ctx context.Context, logger *slog.Logger, execution *models.WorkflowExecution) {
	if err := r.tracker.Update(context.WithoutCancel(ctx), execution); err != nil {
		logger.ErrorContext(ctx, "Failed to update execution", "error", err)
	}
}

func (r *Runner) publish(ctx context.Context, logger *slog.Logger, key string, event eventbus.Event) {
	if r.publisher == nil {
		return
	}

	if err := r.publisher.Publish(ctx, key, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish lifecycle event", "event_type", event.GetType(), "error", err)
	}
}
