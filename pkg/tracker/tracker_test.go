package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu         sync.Mutex
	executions map[string]*models.WorkflowExecution
	saves      int
	fail       bool
}

func newMemorySink() *memorySink {
	return &memorySink{executions: make(map[string]*models.WorkflowExecution)}
}

func (s *memorySink) SaveExecution(_ context.Context, execution *models.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++
	if s.fail {
		return errors.New("disk full")
	}

	s.executions[execution.ID] = execution.Clone()

	return nil
}

func (s *memorySink) ExecutionByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	execution, ok := s.executions[id]
	if !ok {
		return nil, tracker.ErrExecutionNotFound
	}

	return execution.Clone(), nil
}

func (s *memorySink) ExecutionsByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.WorkflowExecution

	for _, execution := range s.executions {
		if execution.WorkflowID == workflowID {
			out = append(out, execution.Clone())
		}
	}

	return out, nil
}

func execution(id, workflowID string, status models.ExecutionStatus, startedAt time.Time) *models.WorkflowExecution {
	return &models.WorkflowExecution{
		ID:          id,
		WorkflowID:  workflowID,
		Status:      status,
		StartedAt:   startedAt,
		TriggerData: map[string]any{"case": map[string]any{"id": id}},
	}
}

func TestTracker_CreateGetUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tr := tracker.New(slog.Default())

	exec := execution("e1", "rule-1", models.ExecutionStatusPending, time.Now())
	require.NoError(t, tr.Create(ctx, exec))
	require.Error(t, tr.Create(ctx, exec))

	exec.Status = models.ExecutionStatusRunning
	exec.ExecutionLog = append(exec.ExecutionLog, models.WorkflowStep{StepID: "s1", Status: models.StepStatusRunning})
	require.NoError(t, tr.Update(ctx, exec))

	got, err := tr.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, got.Status)
	require.Len(t, got.ExecutionLog, 1)

	// the returned value is a copy
	got.ExecutionLog[0].Status = models.StepStatusFailed
	got.TriggerData["case"].(map[string]any)["id"] = "changed"

	again, err := tr.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.StepStatusRunning, again.ExecutionLog[0].Status)
	assert.Equal(t, "e1", again.TriggerData["case"].(map[string]any)["id"])

	_, err = tr.Get(ctx, "missing")
	require.ErrorIs(t, err, tracker.ErrExecutionNotFound)

	require.ErrorIs(t, tr.Update(ctx, execution("missing", "rule-1", models.ExecutionStatusRunning, time.Now())), tracker.ErrExecutionNotFound)
}

func TestTracker_TerminalExecutionsAreFrozen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tr := tracker.New(slog.Default())

	exec := execution("e1", "rule-1", models.ExecutionStatusRunning, time.Now())
	require.NoError(t, tr.Create(ctx, exec))

	exec.Status = models.ExecutionStatusCompleted
	require.NoError(t, tr.Update(ctx, exec))

	exec.Status = models.ExecutionStatusFailed
	require.ErrorIs(t, tr.Update(ctx, exec), tracker.ErrExecutionTerminal)

	got, err := tr.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, got.Status)
}

func TestTracker_ByWorkflow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tr := tracker.New(slog.Default())
	base := time.Now()

	for i := range 6 {
		workflowID := "rule-a"
		if i%2 == 1 {
			workflowID = "rule-b"
		}

		require.NoError(t, tr.Create(ctx, execution(fmt.Sprintf("e%d", i), workflowID, models.ExecutionStatusCompleted, base.Add(time.Duration(i)*time.Second))))
	}

	forA := tr.ByWorkflow(ctx, "rule-a")
	require.Len(t, forA, 3)

	for i, exec := range forA {
		assert.Equal(t, "rule-a", exec.WorkflowID)
		assert.Equal(t, fmt.Sprintf("e%d", i*2), exec.ID)
	}

	assert.Len(t, tr.ByWorkflow(ctx, "rule-b"), 3)
	assert.Empty(t, tr.ByWorkflow(ctx, "rule-c"))
	assert.Len(t, tr.List(), 6)
}

func TestTracker_RetentionEvictsOldestFinished(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tr := tracker.New(slog.Default(), tracker.WithMaxExecutions(2))
	base := time.Now()

	require.NoError(t, tr.Create(ctx, execution("running", "r", models.ExecutionStatusRunning, base)))
	require.NoError(t, tr.Create(ctx, execution("done-1", "r", models.ExecutionStatusCompleted, base.Add(time.Second))))
	require.NoError(t, tr.Create(ctx, execution("done-2", "r", models.ExecutionStatusFailed, base.Add(2*time.Second))))

	assert.Equal(t, 2, tr.Len())

	_, err := tr.Get(ctx, "done-1")
	require.ErrorIs(t, err, tracker.ErrExecutionNotFound)

	_, err = tr.Get(ctx, "running")
	require.NoError(t, err)
}

func TestTracker_SinkWriteThroughAndFallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sink := newMemorySink()
	tr := tracker.New(slog.Default(), tracker.WithMaxExecutions(1), tracker.WithSink(sink))
	base := time.Now()

	require.NoError(t, tr.Create(ctx, execution("e1", "rule-1", models.ExecutionStatusCompleted, base)))
	require.NoError(t, tr.Create(ctx, execution("e2", "rule-1", models.ExecutionStatusCompleted, base.Add(time.Second))))
	assert.Equal(t, 2, sink.saves)
	assert.Equal(t, 1, tr.Len())

	evicted, err := tr.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", evicted.ID)

	all := tr.ByWorkflow(ctx, "rule-1")
	require.Len(t, all, 2)
	assert.Equal(t, "e1", all[0].ID)
	assert.Equal(t, "e2", all[1].ID)
}

func TestTracker_SinkFailureDoesNotFail(t *testing.T) {
	t.Parallel()

	sink := newMemorySink()
	sink.fail = true
	tr := tracker.New(slog.Default(), tracker.WithSink(sink))

	require.NoError(t, tr.Create(context.Background(), execution("e1", "rule-1", models.ExecutionStatusPending, time.Now())))
	assert.Equal(t, 1, tr.Len())
}
