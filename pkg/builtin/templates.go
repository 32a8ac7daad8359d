package builtin

import "github.com/dukex/caseflow/pkg/models"

// Templates returns fresh copies of the built-in document templates.
func Templates() []models.DocumentTemplate {
	return []models.DocumentTemplate{
		{
			ID:           TemplateWelcomeLetter,
			Name:         "Welcome letter",
			Description:  "First letter sent to a new client.",
			TemplateType: "letter",
			Content: "Dear {{client.name}},\n\n" +
				"Thank you for choosing {{firm.name}}. Your case {{case.number}} is now open " +
				"and {{case.owner}} will be your point of contact.\n\n" +
				"Kind regards,\n{{firm.name}}",
			Variables: []models.TemplateVariable{
				{Name: "client.name", Type: "string", Required: true, Description: "Client full name"},
				{Name: "firm.name", Type: "string", DefaultValue: "our firm"},
				{Name: "case.number", Type: "string", Required: true},
				{Name: "case.owner", Type: "string", DefaultValue: "your case manager"},
			},
			OutputFormat: "text",
		},
		{
			ID:           TemplatePaymentReceipt,
			Name:         "Payment receipt",
			TemplateType: "receipt",
			Content: "Receipt {{payment_id}}\n" +
				"Received from: {{client.name}}\n" +
				"Amount: {{amount}} {{currency}}\n" +
				"Case: {{case_id}}",
			Variables: []models.TemplateVariable{
				{Name: "payment_id", Type: "string", Required: true},
				{Name: "client.name", Type: "string", Required: true},
				{Name: "amount", Type: "number", Required: true},
				{Name: "currency", Type: "string", DefaultValue: "USD"},
				{Name: "case_id", Type: "string"},
			},
			OutputFormat: "text",
		},
		{
			ID:           TemplateDeadlineNotice,
			Name:         "Deadline notice",
			TemplateType: "notice",
			Content: "{{client.name}}, the deadline \"{{deadline.title}}\" for case {{case_id}} " +
				"is due on {{deadline.due_date}} ({{days_until_due}} days left).",
			Variables: []models.TemplateVariable{
				{Name: "client.name", Type: "string", Required: true},
				{Name: "deadline.title", Type: "string", Required: true},
				{Name: "deadline.due_date", Type: "date", Required: true},
				{Name: "days_until_due", Type: "number"},
				{Name: "case_id", Type: "string"},
			},
			OutputFormat: "text",
		},
	}
}
