// Package persistence provides the durable storage abstraction for rules,
// templates and executions.
package persistence

import (
	"context"

	"github.com/dukex/caseflow/pkg/models"
)

type Persistence interface {
	Rules(ctx context.Context) ([]models.WorkflowRule, error)
	SaveRule(ctx context.Context, rule models.WorkflowRule) error
	RuleByID(ctx context.Context, id string) (*models.WorkflowRule, error)
	DeleteRule(ctx context.Context, id string) error

	Templates(ctx context.Context) ([]models.DocumentTemplate, error)
	SaveTemplate(ctx context.Context, tpl models.DocumentTemplate) error
	DeleteTemplate(ctx context.Context, id string) error

	SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error
	ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
