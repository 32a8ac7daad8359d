package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
)

const executionColumns = `
			id
		  , workflow_id
		  , trigger_type
		  , trigger_data
		  , status
		  , started_at
		  , completed_at
		  , error_message
		  , execution_log
`

// ExecutionRepository handles workflow execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// Save upserts the full state of an execution.
func (r *ExecutionRepository) Save(ctx context.Context, execution *models.WorkflowExecution) error {
	triggerData, err := json.Marshal(execution.TriggerData)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	log := execution.ExecutionLog
	if log == nil {
		log = []models.WorkflowStep{}
	}

	executionLog, err := json.Marshal(log)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	query := `
		INSERT INTO workflow_executions (` + executionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status
		  , completed_at = EXCLUDED.completed_at
		  , error_message = EXCLUDED.error_message
		  , execution_log = EXCLUDED.execution_log
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		string(execution.TriggerType),
		string(triggerData),
		string(execution.Status),
		execution.StartedAt,
		execution.CompletedAt,
		execution.ErrorMessage,
		string(executionLog),
	)
	if err != nil {
		return persistence.NewExecutionError("SaveExecution", execution.ID, err)
	}

	return nil
}

// GetByID returns an execution.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM workflow_executions WHERE id = $1`, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("ExecutionByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("ExecutionByID", id, err)
	}

	return execution, nil
}

// GetByWorkflow returns every execution of one rule, oldest first.
func (r *ExecutionRepository) GetByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE workflow_id = $1 ORDER BY started_at, id`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func scanExecution(row scanner) (*models.WorkflowExecution, error) {
	var (
		execution    models.WorkflowExecution
		triggerType  string
		status       string
		triggerData  []byte
		executionLog []byte
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&triggerType,
		&triggerData,
		&status,
		&execution.StartedAt,
		&completedAt,
		&execution.ErrorMessage,
		&executionLog,
	)
	if err != nil {
		return nil, err
	}

	execution.TriggerType = models.TriggerType(triggerType)
	execution.Status = models.ExecutionStatus(status)
	execution.StartedAt = execution.StartedAt.UTC()

	if completedAt.Valid {
		t := completedAt.Time.UTC()
		execution.CompletedAt = &t
	}

	if len(triggerData) > 0 {
		err = json.Unmarshal(triggerData, &execution.TriggerData)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
		}
	}

	err = json.Unmarshal(executionLog, &execution.ExecutionLog)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution log: %w", err)
	}

	return &execution, nil
}

// SaveExecution stores an execution.
func (p *Persistence) SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	return p.executionRepo.Save(ctx, execution)
}

// ExecutionByID returns a stored execution.
func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return p.executionRepo.GetByID(ctx, id)
}

// ExecutionsByWorkflow returns every stored execution of one rule.
func (p *Persistence) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	return p.executionRepo.GetByWorkflow(ctx, workflowID)
}
