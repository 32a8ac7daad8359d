// Package models defines the core domain models for case-management workflow automation.
package models

import (
	"slices"
	"time"
)

// TriggerType is the kind of domain event a rule listens for.
type TriggerType string

const (
	TriggerCaseCreated         TriggerType = "case_created"
	TriggerTaskCompleted       TriggerType = "task_completed"
	TriggerDocumentUploaded    TriggerType = "document_uploaded"
	TriggerDeadlineApproaching TriggerType = "deadline_approaching"
	TriggerPaymentReceived     TriggerType = "payment_received"
	TriggerCustom              TriggerType = "custom"
)

// TriggerTypes lists every trigger type a rule can listen for.
func TriggerTypes() []TriggerType {
	return []TriggerType{
		TriggerCaseCreated,
		TriggerTaskCompleted,
		TriggerDocumentUploaded,
		TriggerDeadlineApproaching,
		TriggerPaymentReceived,
		TriggerCustom,
	}
}

func (t TriggerType) Valid() bool {
	return slices.Contains(TriggerTypes(), t)
}

// WorkflowTrigger describes which events activate a rule.
// Filters maps dotted paths in the event data to the value they must equal.
type WorkflowTrigger struct {
	Type    TriggerType    `json:"type"              yaml:"type"              validate:"required"`
	Event   string         `json:"event,omitempty"   yaml:"event,omitempty"`
	Filters map[string]any `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// WorkflowRule is a named, prioritized trigger+conditions+actions definition.
type WorkflowRule struct {
	ID          string              `json:"id"          yaml:"id"          validate:"required"`
	Name        string              `json:"name"        yaml:"name"        validate:"required"`
	Description string              `json:"description" yaml:"description"`
	Trigger     WorkflowTrigger     `json:"trigger"     yaml:"trigger"`
	Conditions  []WorkflowCondition `json:"conditions"  yaml:"conditions"  validate:"dive"`
	Actions     []WorkflowAction    `json:"actions"     yaml:"actions"     validate:"dive"`
	Enabled     bool                `json:"enabled"     yaml:"enabled"`
	Priority    int                 `json:"priority"    yaml:"priority"`
	CreatedBy   string              `json:"created_by"  yaml:"created_by"`
	CreatedAt   time.Time           `json:"created_at"  yaml:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"  yaml:"updated_at"`
}
