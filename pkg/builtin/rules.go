// Package builtin ships the default rules and document templates of a
// case-management practice.
package builtin

import (
	"github.com/dukex/caseflow/pkg/models"
)

const (
	RuleNewCaseWelcome        = "new-case-welcome"
	RuleTaskCompleted         = "task-completed-notification"
	RuleDocumentUploaded      = "document-uploaded-notification"
	RuleDeadlineReminder      = "deadline-reminder"
	RulePaymentReceipt        = "payment-receipt"
	TemplateWelcomeLetter     = "welcome-letter"
	TemplatePaymentReceipt    = "payment-receipt"
	TemplateDeadlineNotice    = "deadline-notice"
	deadlineReminderThreshold = 3
)

// Rules returns fresh copies of the built-in rules.
func Rules() []models.WorkflowRule {
	return []models.WorkflowRule{
		{
			ID:          RuleNewCaseWelcome,
			Name:        "New case welcome",
			Description: "Welcomes the client when a case is opened.",
			Trigger:     models.WorkflowTrigger{Type: models.TriggerCaseCreated},
			Conditions:  []models.WorkflowCondition{},
			Actions: []models.WorkflowAction{
				{
					Type: models.ActionSendEmail,
					Config: map[string]any{
						"to":       "{{client.email}}",
						"subject":  "Welcome, {{client.name}}",
						"template": TemplateWelcomeLetter,
					},
				},
			},
			Enabled:   true,
			Priority:  100,
			CreatedBy: "system",
		},
		{
			ID:          RuleTaskCompleted,
			Name:        "Task completed notification",
			Description: "Tells the case owner a task is done.",
			Trigger:     models.WorkflowTrigger{Type: models.TriggerTaskCompleted},
			Conditions: []models.WorkflowCondition{
				{Field: "task.assigned_to", Operator: models.OperatorExists},
			},
			Actions: []models.WorkflowAction{
				{
					Type: models.ActionSendNotification,
					Config: map[string]any{
						"recipient": "{{case.owner}}",
						"message":   "Task \"{{task.title}}\" was completed by {{task.assigned_to}}",
					},
				},
			},
			Enabled:   true,
			Priority:  50,
			CreatedBy: "system",
		},
		{
			ID:          RuleDocumentUploaded,
			Name:        "Document uploaded notification",
			Description: "Tells the case owner and opens a review task when a document arrives.",
			Trigger:     models.WorkflowTrigger{Type: models.TriggerDocumentUploaded},
			Conditions:  []models.WorkflowCondition{},
			Actions: []models.WorkflowAction{
				{
					Type: models.ActionSendNotification,
					Config: map[string]any{
						"recipient": "{{case.owner}}",
						"message":   "New document {{document.name}} on case {{case_id}}",
					},
				},
				{
					Type: models.ActionCreateTask,
					Config: map[string]any{
						"title":       "Review {{document.name}}",
						"case_id":     "{{case_id}}",
						"assignee":    "{{case.owner}}",
						"due_in_days": 2,
					},
				},
			},
			Enabled:   true,
			Priority:  50,
			CreatedBy: "system",
		},
		{
			ID:          RuleDeadlineReminder,
			Name:        "Deadline reminder",
			Description: "Reminds the client and schedules a check-in when a deadline is close.",
			Trigger:     models.WorkflowTrigger{Type: models.TriggerDeadlineApproaching},
			Conditions: []models.WorkflowCondition{
				{Field: "days_until_due", Operator: models.OperatorLessThan, Value: deadlineReminderThreshold},
			},
			Actions: []models.WorkflowAction{
				{
					Type: models.ActionSendEmail,
					Config: map[string]any{
						"to":       "{{client.email}}",
						"subject":  "Deadline in {{days_until_due}} days: {{deadline.title}}",
						"template": TemplateDeadlineNotice,
					},
				},
				{
					Type: models.ActionCreateCalendarEvent,
					Config: map[string]any{
						"title":    "Deadline: {{deadline.title}}",
						"start":    "{{deadline.due_date}}",
						"case_id":  "{{case_id}}",
						"duration": 30,
					},
				},
			},
			Enabled:   true,
			Priority:  80,
			CreatedBy: "system",
		},
		{
			ID:          RulePaymentReceipt,
			Name:        "Payment receipt",
			Description: "Generates a receipt and emails it to the client.",
			Trigger:     models.WorkflowTrigger{Type: models.TriggerPaymentReceived},
			Conditions: []models.WorkflowCondition{
				{Field: "amount", Operator: models.OperatorGreaterThan, Value: 0},
			},
			Actions: []models.WorkflowAction{
				{
					Type: models.ActionGenerateDocument,
					Config: map[string]any{
						"template_id": TemplatePaymentReceipt,
						"name":        "Receipt {{payment_id}}",
					},
				},
				{
					Type: models.ActionSendEmail,
					Config: map[string]any{
						"to":      "{{client.email}}",
						"subject": "Payment received: {{amount}}",
					},
				},
				{
					Type: models.ActionUpdateCase,
					Config: map[string]any{
						"case_id": "{{case_id}}",
						"fields":  map[string]any{"last_payment_id": "{{payment_id}}"},
					},
				},
			},
			Enabled:   true,
			Priority:  60,
			CreatedBy: "system",
		},
	}
}
