package actions_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/caseflow/pkg/actions"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorder(calls *[]map[string]any, result any, err error) actions.Handler {
	return actions.HandlerFunc(func(_ context.Context, config map[string]any, _ map[string]any) (any, error) {
		*calls = append(*calls, config)

		return result, err
	})
}

func TestExecutor_DispatchesByType(t *testing.T) {
	t.Parallel()

	var emails, webhooks []map[string]any

	executor := actions.NewExecutor(slog.Default(), actions.Handlers{
		Email:   recorder(&emails, "sent", nil),
		Webhook: recorder(&webhooks, nil, errors.New("endpoint down")),
	})

	result, err := executor.Execute(context.Background(), models.WorkflowAction{
		Type:   models.ActionSendEmail,
		Config: map[string]any{"to": "{{client.email}}", "subject": "Hi {{client.name}}"},
	}, map[string]any{"client": map[string]any{"email": "ana@example.com", "name": "Ana"}})
	require.NoError(t, err)
	assert.Equal(t, "sent", result)
	require.Len(t, emails, 1)
	assert.Equal(t, "ana@example.com", emails[0]["to"])
	assert.Equal(t, "Hi Ana", emails[0]["subject"])

	_, err = executor.Execute(context.Background(), models.WorkflowAction{Type: models.ActionWebhook}, nil)
	require.EqualError(t, err, "endpoint down")
	assert.Len(t, webhooks, 1)
}

func TestExecutor_Errors(t *testing.T) {
	t.Parallel()

	executor := actions.NewExecutor(slog.Default(), actions.Handlers{})

	_, err := executor.Execute(context.Background(), models.WorkflowAction{Type: "fax"}, nil)
	require.ErrorIs(t, err, models.ErrUnknownActionType)

	for _, actionType := range models.ActionTypes() {
		_, err := executor.Execute(context.Background(), models.WorkflowAction{Type: actionType}, nil)
		require.ErrorIs(t, err, actions.ErrHandlerNotConfigured, actionType)
	}
}

func TestInterpolate(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"case_id": "c-1",
		"amount":  250.0,
		"client":  map[string]any{"email": "ana@example.com"},
		"tags":    []any{"vip"},
	}

	config := map[string]any{
		"whole":    "{{amount}}",
		"spaced":   "{{ client.email }}",
		"embedded": "Case {{case_id}} owes {{amount}}{{missing}}",
		"missing":  "{{nope.deep}}",
		"list":     "{{tags}}",
		"nested":   map[string]any{"to": "{{client.email}}"},
		"array":    []any{"{{case_id}}", 3},
		"plain":    7,
	}

	out := actions.Interpolate(config, data)

	assert.InDelta(t, 250.0, out["whole"], 0)
	assert.Equal(t, "ana@example.com", out["spaced"])
	assert.Equal(t, "Case c-1 owes 250", out["embedded"])
	assert.Nil(t, out["missing"])
	assert.Equal(t, []any{"vip"}, out["list"])
	assert.Equal(t, map[string]any{"to": "ana@example.com"}, out["nested"])
	assert.Equal(t, []any{"c-1", 3}, out["array"])
	assert.Equal(t, 7, out["plain"])

	assert.Equal(t, "{{amount}}", config["whole"], "input config must not change")
	assert.Empty(t, actions.Interpolate(nil, data))
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		action models.WorkflowAction
		valid  bool
	}{
		{"email ok", models.WorkflowAction{Type: models.ActionSendEmail, Config: map[string]any{"to": "{{client.email}}"}}, true},
		{"email missing to", models.WorkflowAction{Type: models.ActionSendEmail, Config: map[string]any{"subject": "x"}}, false},
		{"task ok", models.WorkflowAction{Type: models.ActionCreateTask, Config: map[string]any{"title": "Review"}}, true},
		{"case nil config", models.WorkflowAction{Type: models.ActionUpdateCase}, false},
		{"document ok", models.WorkflowAction{Type: models.ActionGenerateDocument, Config: map[string]any{"template_id": "t"}}, true},
		{"calendar empty title", models.WorkflowAction{Type: models.ActionCreateCalendarEvent, Config: map[string]any{"title": ""}}, false},
		{"notification ok", models.WorkflowAction{Type: models.ActionSendNotification, Config: map[string]any{"message": "m"}}, true},
		{"script ok", models.WorkflowAction{Type: models.ActionRunScript, Config: map[string]any{"script": "s"}}, true},
		{"webhook bad method", models.WorkflowAction{Type: models.ActionWebhook, Config: map[string]any{"url": "u", "method": "TRACE"}}, false},
		{"webhook ok", models.WorkflowAction{Type: models.ActionWebhook, Config: map[string]any{"url": "u", "timeout": 5}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := actions.ValidateConfig(tt.action)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, actions.ErrInvalidConfig)
			}
		})
	}

	err := actions.ValidateConfig(models.WorkflowAction{Type: "fax"})
	require.ErrorIs(t, err, models.ErrUnknownActionType)
}
