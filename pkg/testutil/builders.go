// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/google/uuid"
)

// CreateTestRule creates an enabled case_created rule with one notification
// action. Overrides are applied in order.
func CreateTestRule(overrides ...func(*models.WorkflowRule)) models.WorkflowRule {
	rule := models.WorkflowRule{
		ID:      "rule-" + uuid.New().String()[:8],
		Name:    "Test Rule",
		Trigger: models.WorkflowTrigger{Type: models.TriggerCaseCreated},
		Actions: []models.WorkflowAction{
			{Type: models.ActionSendNotification, Config: map[string]any{"message": "test"}},
		},
		Enabled:   true,
		CreatedBy: "tests",
	}

	for _, override := range overrides {
		override(&rule)
	}

	return rule
}

func WithID(id string) func(*models.WorkflowRule) {
	return func(r *models.WorkflowRule) {
		r.ID = id
	}
}

func WithTrigger(triggerType models.TriggerType) func(*models.WorkflowRule) {
	return func(r *models.WorkflowRule) {
		r.Trigger.Type = triggerType
	}
}

func WithPriority(priority int) func(*models.WorkflowRule) {
	return func(r *models.WorkflowRule) {
		r.Priority = priority
	}
}

// WithCondition appends a condition.
func WithCondition(field string, operator models.Operator, value any) func(*models.WorkflowRule) {
	return func(r *models.WorkflowRule) {
		r.Conditions = append(r.Conditions, models.WorkflowCondition{Field: field, Operator: operator, Value: value})
	}
}

// WithActions replaces the actions.
func WithActions(actions ...models.WorkflowAction) func(*models.WorkflowRule) {
	return func(r *models.WorkflowRule) {
		r.Actions = actions
	}
}

// Disabled turns the rule off.
func Disabled() func(*models.WorkflowRule) {
	return func(r *models.WorkflowRule) {
		r.Enabled = false
	}
}

// CreateTestExecution creates a running execution of workflowID started at startedAt.
func CreateTestExecution(workflowID string, startedAt time.Time, overrides ...func(*models.WorkflowExecution)) *models.WorkflowExecution {
	execution := &models.WorkflowExecution{
		ID:           uuid.New().String(),
		WorkflowID:   workflowID,
		TriggerType:  models.TriggerCaseCreated,
		TriggerData:  map[string]any{},
		Status:       models.ExecutionStatusRunning,
		StartedAt:    startedAt,
		ExecutionLog: []models.WorkflowStep{},
	}

	for _, override := range overrides {
		override(execution)
	}

	return execution
}

// WithStatus sets the execution status, stamping CompletedAt for terminal ones.
func WithStatus(status models.ExecutionStatus) func(*models.WorkflowExecution) {
	return func(e *models.WorkflowExecution) {
		e.Status = status

		if status.IsTerminal() {
			completed := e.StartedAt.Add(time.Second)
			e.CompletedAt = &completed
		}
	}
}
