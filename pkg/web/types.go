package web

import "github.com/dukex/caseflow/pkg/models"

// RuleRequest is the body of POST /rules. An existing id replaces that rule.
type RuleRequest struct {
	ID          string                     `json:"id"          validate:"required"`
	Name        string                     `json:"name"        validate:"required,min=3"`
	Description string                     `json:"description"`
	Trigger     models.WorkflowTrigger     `json:"trigger"`
	Conditions  []models.WorkflowCondition `json:"conditions"  validate:"dive"`
	Actions     []models.WorkflowAction    `json:"actions"     validate:"required,min=1,dive"`
	Enabled     *bool                      `json:"enabled"`
	Priority    int                        `json:"priority"`
	CreatedBy   string                     `json:"created_by"`
}

// RenderRequest is the body of POST /templates/:id/render.
type RenderRequest struct {
	Data map[string]any `json:"data"`
	Name string         `json:"name"`
}

// DispatchResponse lists the executions started by one event.
type DispatchResponse struct {
	TriggerType models.TriggerType          `json:"trigger_type"`
	Count       int                         `json:"count"`
	Executions  []*models.WorkflowExecution `json:"executions"`
}

// ExecutionsResponse wraps a list of executions.
type ExecutionsResponse struct {
	Count      int                         `json:"count"`
	Executions []*models.WorkflowExecution `json:"executions"`
}

// Rule converts the request into a rule. Rules are enabled unless the
// request says otherwise.
func (r RuleRequest) Rule() models.WorkflowRule {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return models.WorkflowRule{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Trigger:     r.Trigger,
		Conditions:  r.Conditions,
		Actions:     r.Actions,
		Enabled:     enabled,
		Priority:    r.Priority,
		CreatedBy:   r.CreatedBy,
	}
}
