// Package persistencetest holds behaviour checks shared by every persistence
// implementation.
package persistencetest

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises rules, templates and executions against p. p must start empty.
func Run(ctx context.Context, t *testing.T, p persistence.Persistence) {
	t.Helper()

	require.NoError(t, p.HealthCheck(ctx))

	t.Run("rules", func(t *testing.T) { rules(ctx, t, p) })
	t.Run("templates", func(t *testing.T) { templates(ctx, t, p) })
	t.Run("executions", func(t *testing.T) { executions(ctx, t, p) })
}

func rule(id string, priority int) models.WorkflowRule {
	return models.WorkflowRule{
		ID:      id,
		Name:    "Rule " + id,
		Trigger: models.WorkflowTrigger{Type: models.TriggerCaseCreated},
		Conditions: []models.WorkflowCondition{
			{Field: "client.email", Operator: models.OperatorExists},
		},
		Actions: []models.WorkflowAction{
			{Type: models.ActionSendEmail, Config: map[string]any{"to": "{{client.email}}"}, Delay: 5},
		},
		Enabled:   true,
		Priority:  priority,
		CreatedBy: "tests",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func rules(ctx context.Context, t *testing.T, p persistence.Persistence) {
	require.NoError(t, p.SaveRule(ctx, rule("first", 1)))
	require.NoError(t, p.SaveRule(ctx, rule("second", 2)))

	updated := rule("first", 10)
	updated.Name = "Renamed"
	require.NoError(t, p.SaveRule(ctx, updated))

	all, err := p.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].ID)
	assert.Equal(t, "Renamed", all[0].Name)
	assert.Equal(t, 10, all[0].Priority)
	assert.Equal(t, "second", all[1].ID)

	stored, err := p.RuleByID(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, models.ActionSendEmail, stored.Actions[0].Type)
	assert.Equal(t, "{{client.email}}", stored.Actions[0].Config["to"])
	assert.Equal(t, 5, stored.Actions[0].Delay)
	assert.True(t, stored.CreatedAt.Equal(rule("x", 0).CreatedAt))

	_, err = p.RuleByID(ctx, "missing")
	assert.True(t, persistence.IsRuleNotFound(err))

	require.NoError(t, p.DeleteRule(ctx, "first"))
	assert.True(t, persistence.IsRuleNotFound(p.DeleteRule(ctx, "first")))

	all, err = p.Rules(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func templates(ctx context.Context, t *testing.T, p persistence.Persistence) {
	tpl := models.DocumentTemplate{
		ID:           "greeting",
		Name:         "Greeting",
		Content:      "Hello {{name}}!",
		Variables:    []models.TemplateVariable{{Name: "name", Type: "string", DefaultValue: "friend"}},
		OutputFormat: "text",
	}

	require.NoError(t, p.SaveTemplate(ctx, tpl))

	all, err := p.Templates(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, tpl, all[0])

	require.NoError(t, p.DeleteTemplate(ctx, "greeting"))
	assert.True(t, persistence.IsTemplateNotFound(p.DeleteTemplate(ctx, "greeting")))
}

func executions(ctx context.Context, t *testing.T, p persistence.Persistence) {
	started := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	execution := &models.WorkflowExecution{
		ID:           "exec-1",
		WorkflowID:   "rule-a",
		TriggerType:  models.TriggerPaymentReceived,
		TriggerData:  map[string]any{"amount": 120.0},
		Status:       models.ExecutionStatusRunning,
		StartedAt:    started,
		ExecutionLog: []models.WorkflowStep{},
	}
	require.NoError(t, p.SaveExecution(ctx, execution))

	completed := started.Add(time.Second)
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &completed
	execution.ExecutionLog = append(execution.ExecutionLog, models.WorkflowStep{
		StepID:     "step-1",
		ActionType: models.ActionSendEmail,
		Status:     models.StepStatusCompleted,
		Result:     "sent",
		Timestamp:  started,
	})
	require.NoError(t, p.SaveExecution(ctx, execution))

	require.NoError(t, p.SaveExecution(ctx, &models.WorkflowExecution{
		ID:          "exec-0",
		WorkflowID:  "rule-a",
		TriggerType: models.TriggerPaymentReceived,
		Status:      models.ExecutionStatusFailed,
		StartedAt:   started.Add(-time.Minute),
	}))
	require.NoError(t, p.SaveExecution(ctx, &models.WorkflowExecution{
		ID:          "exec-other",
		WorkflowID:  "rule-b",
		TriggerType: models.TriggerCaseCreated,
		Status:      models.ExecutionStatusPending,
		StartedAt:   started,
	}))

	stored, err := p.ExecutionByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.CompletedAt.Equal(completed))
	require.Len(t, stored.ExecutionLog, 1)
	assert.Equal(t, "sent", stored.ExecutionLog[0].Result)
	assert.InDelta(t, 120.0, stored.TriggerData["amount"], 0)

	_, err = p.ExecutionByID(ctx, "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))

	byRule, err := p.ExecutionsByWorkflow(ctx, "rule-a")
	require.NoError(t, err)
	require.Len(t, byRule, 2)
	assert.Equal(t, "exec-0", byRule[0].ID)
	assert.Equal(t, "exec-1", byRule[1].ID)
}
