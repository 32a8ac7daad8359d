package workflow

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukex/caseflow/pkg/conditions"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/otelhelper"
	"github.com/dukex/caseflow/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dispatcher routes a domain event to every enabled rule it matches.
type Dispatcher struct {
	logger     *slog.Logger
	rules      *registry.Rules
	runner     *Runner
	tracer     trace.Tracer
	metrics    *Metrics
	concurrent bool
}

// NewDispatcher creates a Dispatcher. With concurrent set, matching rules run
// on their own goroutines instead of one after another; executions still start
// in priority order but their actions interleave.
func NewDispatcher(
	logger *slog.Logger,
	rules *registry.Rules,
	runner *Runner,
	tracer trace.Tracer,
	metrics *Metrics,
	concurrent bool,
) *Dispatcher {
	return &Dispatcher{
		logger:     logger.With("module", "trigger_dispatcher"),
		rules:      rules,
		runner:     runner,
		tracer:     tracer,
		metrics:    metrics,
		concurrent: concurrent,
	}
}

// Dispatch evaluates every enabled rule registered for triggerType, highest
// priority first, and runs those whose trigger filters and conditions pass.
// A failing or panicking rule never prevents its siblings from running.
// The returned executions are in priority order and only include started runs.
func (d *Dispatcher) Dispatch(ctx context.Context, triggerType models.TriggerType, eventData map[string]any) []*models.WorkflowExecution {
	start := time.Now()
	defer func() { d.metrics.dispatch.Observe(time.Since(start).Seconds()) }()

	candidates := d.rules.ByTrigger(triggerType)
	slices.SortStableFunc(candidates, func(a, b models.WorkflowRule) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "workflow.dispatch",
		attribute.String(otelhelper.TriggerTypeKey, string(triggerType)),
		attribute.Int(otelhelper.MatchedKey, len(candidates)),
	)
	defer span.End()

	d.logger.DebugContext(ctx, "Dispatching event", "trigger_type", triggerType, "candidates", len(candidates))

	results := make([]*models.WorkflowExecution, len(candidates))

	if d.concurrent {
		var wg sync.WaitGroup

		// Each rule starts only after the previous one has started or been
		// skipped, so executions begin in priority order.
		previous := make(chan struct{})
		close(previous)

		for i, rule := range candidates {
			next := make(chan struct{})
			wg.Add(1)

			go func(previous <-chan struct{}) {
				defer wg.Done()

				var once sync.Once
				started := func() { once.Do(func() { close(next) }) }
				defer started()

				<-previous

				results[i] = d.runRule(ctx, rule, triggerType, eventData, started)
			}(previous)

			previous = next
		}

		wg.Wait()
	} else {
		for i, rule := range candidates {
			results[i] = d.runRule(ctx, rule, triggerType, eventData, nil)
		}
	}

	executions := make([]*models.WorkflowExecution, 0, len(results))
	for _, execution := range results {
		if execution != nil {
			executions = append(executions, execution)
		}
	}

	return executions
}

func (d *Dispatcher) runRule(
	ctx context.Context,
	rule models.WorkflowRule,
	triggerType models.TriggerType,
	eventData map[string]any,
	started func(),
) (execution *models.WorkflowExecution) {
	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.ErrorContext(ctx, "Rule execution panicked", "rule_id", rule.ID, "panic", recovered)

			execution = nil
		}
	}()

	if !MatchesTrigger(rule.Trigger, eventData) {
		return nil
	}

	if !conditions.Evaluate(rule.Conditions, eventData) {
		d.logger.DebugContext(ctx, "Rule conditions not met", "rule_id", rule.ID)

		return nil
	}

	return d.runner.run(ctx, rule, triggerType, eventData, started)
}

// MatchesTrigger applies a trigger's filters and, for custom triggers, its
// event name to the event data.
func MatchesTrigger(trigger models.WorkflowTrigger, eventData map[string]any) bool {
	if trigger.Type == models.TriggerCustom && trigger.Event != "" {
		if !conditions.EvaluateOne(models.WorkflowCondition{
			Field:    "event",
			Operator: models.OperatorEquals,
			Value:    trigger.Event,
		}, eventData) {
			return false
		}
	}

	for path, expected := range trigger.Filters {
		if !conditions.EvaluateOne(models.WorkflowCondition{
			Field:    path,
			Operator: models.OperatorEquals,
			Value:    expected,
		}, eventData) {
			return false
		}
	}

	return true
}
