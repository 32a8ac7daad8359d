// Package tracker keeps the audit trail of workflow executions.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dukex/caseflow/pkg/models"
)

var (
	// ErrExecutionNotFound indicates no execution is known under the given id.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionTerminal indicates an attempt to change an execution that already finished.
	ErrExecutionTerminal = errors.New("execution already in a terminal state")
)

// Sink durably stores executions beyond the in-memory window.
type Sink interface {
	SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error
	ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxExecutions bounds the number of executions kept in memory. Zero means unbounded.
func WithMaxExecutions(limit int) Option {
	return func(t *Tracker) {
		t.maxExecutions = limit
	}
}

// WithSink writes every execution change through to sink.
func WithSink(sink Sink) Option {
	return func(t *Tracker) {
		t.sink = sink
	}
}

// Tracker is an append-only store of executions and their step logs.
// Stored executions are copies; callers never share memory with the history.
type Tracker struct {
	logger        *slog.Logger
	mu            sync.RWMutex
	executions    map[string]*models.WorkflowExecution
	order         []string
	maxExecutions int
	sink          Sink
}

// New creates an execution tracker.
func New(logger *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		logger:     logger.With("module", "execution_tracker"),
		executions: make(map[string]*models.WorkflowExecution),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Create records a new execution.
func (t *Tracker) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	t.mu.Lock()

	if _, exists := t.executions[execution.ID]; exists {
		t.mu.Unlock()

		return fmt.Errorf("execution %s already tracked", execution.ID)
	}

	t.executions[execution.ID] = execution.Clone()
	t.order = append(t.order, execution.ID)
	t.evict()
	t.mu.Unlock()

	t.persist(ctx, execution)

	return nil
}

// Update replaces the stored state of a tracked execution.
func (t *Tracker) Update(ctx context.Context, execution *models.WorkflowExecution) error {
	t.mu.Lock()

	current, ok := t.executions[execution.ID]
	if !ok {
		t.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrExecutionNotFound, execution.ID)
	}

	if current.Status.IsTerminal() {
		t.mu.Unlock()

		return fmt.Errorf("%w: %s is %s", ErrExecutionTerminal, execution.ID, current.Status)
	}

	t.executions[execution.ID] = execution.Clone()
	if execution.Status.IsTerminal() {
		t.evict()
	}
	t.mu.Unlock()

	t.persist(ctx, execution)

	return nil
}

// Get returns the execution with the given id, consulting the sink when it
// is no longer held in memory.
func (t *Tracker) Get(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	t.mu.RLock()
	execution, ok := t.executions[id]
	t.mu.RUnlock()

	if ok {
		return execution.Clone(), nil
	}

	if t.sink != nil {
		stored, err := t.sink.ExecutionByID(ctx, id)
		if err == nil && stored != nil {
			return stored, nil
		}

		if err != nil {
			t.logger.DebugContext(ctx, "Execution not found in sink", "execution_id", id, "error", err)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, id)
}

// ByWorkflow returns every execution produced by the given rule, oldest first.
func (t *Tracker) ByWorkflow(ctx context.Context, workflowID string) []*models.WorkflowExecution {
	byID := make(map[string]*models.WorkflowExecution)

	if t.sink != nil {
		stored, err := t.sink.ExecutionsByWorkflow(ctx, workflowID)
		if err != nil {
			t.logger.ErrorContext(ctx, "Failed to load executions from sink", "workflow_id", workflowID, "error", err)
		}

		for _, execution := range stored {
			byID[execution.ID] = execution
		}
	}

	t.mu.RLock()
	for _, id := range t.order {
		execution := t.executions[id]
		if execution.WorkflowID == workflowID {
			byID[id] = execution.Clone()
		}
	}
	t.mu.RUnlock()

	out := make([]*models.WorkflowExecution, 0, len(byID))
	for _, execution := range byID {
		out = append(out, execution)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}

		return out[i].StartedAt.Before(out[j].StartedAt)
	})

	return out
}

// List returns the executions held in memory in creation order.
func (t *Tracker) List() []*models.WorkflowExecution {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*models.WorkflowExecution, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.executions[id].Clone())
	}

	return out
}

// Len returns the number of executions held in memory.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.order)
}

// evict drops the oldest finished executions while over the limit.
// Running executions are never evicted. Callers hold t.mu.
func (t *Tracker) evict() {
	if t.maxExecutions <= 0 {
		return
	}

	for i := 0; len(t.order) > t.maxExecutions && i < len(t.order); {
		id := t.order[i]
		if !t.executions[id].Status.IsTerminal() {
			i++

			continue
		}

		delete(t.executions, id)
		t.order = append(t.order[:i], t.order[i+1:]...)
	}
}

func (t *Tracker) persist(ctx context.Context, execution *models.WorkflowExecution) {
	if t.sink == nil {
		return
	}

	err := t.sink.SaveExecution(ctx, execution)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to persist execution",
			"execution_id", execution.ID,
			"workflow_id", execution.WorkflowID,
			"error", err)
	}
}
