package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/caseflow/pkg/actions"
	"github.com/dukex/caseflow/pkg/actions/document"
	"github.com/dukex/caseflow/pkg/eventbus"
	"github.com/dukex/caseflow/pkg/events"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/otelhelper"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/dukex/caseflow/pkg/registry"
	"github.com/dukex/caseflow/pkg/templates"
	"github.com/dukex/caseflow/pkg/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnexpectedEvent is returned when a bus handler receives another event type.
var ErrUnexpectedEvent = errors.New("unexpected event")

// Options configures an Engine. Every field is optional.
type Options struct {
	// Handlers bind action kinds to their implementations. A nil Document
	// handler renders from the engine's own template store.
	Handlers actions.Handlers

	// Persistence stores rules, templates and executions durably.
	Persistence persistence.Persistence

	// Publisher receives execution lifecycle events.
	Publisher eventbus.EventPublisher

	Tracer        trace.Tracer
	Registerer    prometheus.Registerer
	MaxExecutions int
	Concurrent    bool
}

// Engine owns the rule registry, the template store and the execution
// tracker, and dispatches events against them.
type Engine struct {
	logger      *slog.Logger
	rules       *registry.Rules
	templates   *templates.Store
	tracker     *tracker.Tracker
	persistence persistence.Persistence
	runner      *Runner
	dispatcher  *Dispatcher
}

// NewEngine builds an engine with empty registries.
func NewEngine(logger *slog.Logger, opts Options) *Engine {
	store := templates.NewStore()

	handlers := opts.Handlers
	if handlers.Document == nil {
		handlers.Document = document.New(store)
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	trackerOpts := []tracker.Option{tracker.WithMaxExecutions(opts.MaxExecutions)}
	if opts.Persistence != nil {
		trackerOpts = append(trackerOpts, tracker.WithSink(opts.Persistence))
	}

	metrics := NewMetrics(opts.Registerer)
	rules := registry.NewRules(logger)
	executions := tracker.New(logger, trackerOpts...)
	runner := NewRunner(logger, actions.NewExecutor(logger, handlers), executions, opts.Publisher, tracer, metrics)

	return &Engine{
		logger:      logger.With("module", "engine"),
		rules:       rules,
		templates:   store,
		tracker:     executions,
		persistence: opts.Persistence,
		runner:      runner,
		dispatcher:  NewDispatcher(logger, rules, runner, tracer, metrics, opts.Concurrent),
	}
}

// Dispatch runs every matching rule for the event and returns the executions
// that started, in priority order.
func (e *Engine) Dispatch(ctx context.Context, triggerType models.TriggerType, eventData map[string]any) []*models.WorkflowExecution {
	return e.dispatcher.Dispatch(ctx, triggerType, eventData)
}

// HandleTriggerReceived is an eventbus.EventHandler dispatching TriggerReceived events.
func (e *Engine) HandleTriggerReceived(ctx context.Context, event any) error {
	trigger, ok := event.(*events.TriggerReceived)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedEvent, event)
	}

	executions := e.Dispatch(ctx, trigger.TriggerType, trigger.Data)
	e.logger.InfoContext(ctx, "Trigger dispatched", "trigger_type", trigger.TriggerType, "executions", len(executions))

	return nil
}

// RegisterRule adds or replaces a rule in memory.
func (e *Engine) RegisterRule(rule models.WorkflowRule) {
	e.rules.Register(rule)
}

// RemoveRule drops a rule from memory. It reports whether the rule existed.
func (e *Engine) RemoveRule(id string) bool {
	return e.rules.Remove(id)
}

// Rule returns a registered rule.
func (e *Engine) Rule(id string) (models.WorkflowRule, bool) {
	return e.rules.Get(id)
}

// Rules lists registered rules in registration order.
func (e *Engine) Rules() []models.WorkflowRule {
	return e.rules.List()
}

// SaveRule persists the rule, when persistence is configured, and registers it.
func (e *Engine) SaveRule(ctx context.Context, rule models.WorkflowRule) error {
	if e.persistence != nil {
		if err := e.persistence.SaveRule(ctx, rule); err != nil {
			return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
		}
	}

	e.rules.Register(rule)

	return nil
}

// DeleteRule removes the rule from persistence and memory.
func (e *Engine) DeleteRule(ctx context.Context, id string) error {
	if e.persistence != nil {
		err := e.persistence.DeleteRule(ctx, id)
		if err != nil && !persistence.IsRuleNotFound(err) {
			return fmt.Errorf("failed to delete rule %s: %w", id, err)
		}
	}

	if !e.rules.Remove(id) {
		return persistence.NewRuleError("DeleteRule", id, persistence.ErrRuleNotFound)
	}

	return nil
}

// RegisterTemplate adds or replaces a template in memory.
func (e *Engine) RegisterTemplate(tpl models.DocumentTemplate) {
	e.templates.Register(tpl)
}

// Template returns a registered template.
func (e *Engine) Template(id string) (models.DocumentTemplate, error) {
	return e.templates.Get(id)
}

// Templates lists registered templates in registration order.
func (e *Engine) Templates() []models.DocumentTemplate {
	return e.templates.List()
}

// SaveTemplate persists the template, when persistence is configured, and registers it.
func (e *Engine) SaveTemplate(ctx context.Context, tpl models.DocumentTemplate) error {
	if e.persistence != nil {
		if err := e.persistence.SaveTemplate(ctx, tpl); err != nil {
			return fmt.Errorf("failed to save template %s: %w", tpl.ID, err)
		}
	}

	e.templates.Register(tpl)

	return nil
}

// DeleteTemplate removes the template from persistence and memory.
func (e *Engine) DeleteTemplate(ctx context.Context, id string) error {
	if e.persistence != nil {
		err := e.persistence.DeleteTemplate(ctx, id)
		if err != nil && !persistence.IsTemplateNotFound(err) {
			return fmt.Errorf("failed to delete template %s: %w", id, err)
		}
	}

	if !e.templates.Remove(id) {
		return fmt.Errorf("%w: %s", templates.ErrTemplateNotFound, id)
	}

	return nil
}

// Render renders a registered template into a document.
func (e *Engine) Render(id string, data map[string]any, name string) (*models.Document, error) {
	return e.templates.Render(id, data, name)
}

// GetExecution returns one execution, looking in persistence when it is no
// longer held in memory.
func (e *Engine) GetExecution(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return e.tracker.Get(ctx, id)
}

// ExecutionsForRule returns every execution of one rule, oldest first.
func (e *Engine) ExecutionsForRule(ctx context.Context, ruleID string) []*models.WorkflowExecution {
	return e.tracker.ByWorkflow(ctx, ruleID)
}

// Executions lists the executions held in memory, oldest first.
func (e *Engine) Executions() []*models.WorkflowExecution {
	return e.tracker.List()
}

// Load registers every rule and template found in persistence.
func (e *Engine) Load(ctx context.Context) error {
	if e.persistence == nil {
		return nil
	}

	rules, err := e.persistence.Rules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	for _, rule := range rules {
		e.rules.Register(rule)
	}

	tpls, err := e.persistence.Templates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	for _, tpl := range tpls {
		e.templates.Register(tpl)
	}

	e.logger.InfoContext(ctx, "Loaded definitions", "rules", len(rules), "templates", len(tpls))

	return nil
}

// HealthCheck reports whether persistence is reachable.
func (e *Engine) HealthCheck(ctx context.Context) error {
	if e.persistence == nil {
		return nil
	}

	return e.persistence.HealthCheck(ctx)
}
