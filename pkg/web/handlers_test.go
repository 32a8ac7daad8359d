package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dukex/caseflow/pkg/actions"
	"github.com/dukex/caseflow/pkg/builtin"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence/file"
	"github.com/dukex/caseflow/pkg/web"
	"github.com/dukex/caseflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outbox struct {
	mu   sync.Mutex
	sent []map[string]any
}

func (o *outbox) Handle(_ context.Context, config map[string]any, _ map[string]any) (any, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.sent = append(o.sent, config)

	return map[string]any{"status": "sent"}, nil
}

type testEnv struct {
	app    *fiber.App
	engine *workflow.Engine
	mail   *outbox
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	mail := &outbox{}
	registry := prometheus.NewRegistry()

	engine := workflow.NewEngine(slog.Default(), workflow.Options{
		Handlers:    actions.Handlers{Email: mail, Notification: mail},
		Persistence: file.NewPersistence(t.TempDir()),
		Registerer:  registry,
	})

	for _, tpl := range builtin.Templates() {
		engine.RegisterTemplate(tpl)
	}

	for _, rule := range builtin.Rules() {
		engine.RegisterRule(rule)
	}

	return &testEnv{
		app:    web.NewApp(slog.Default(), engine, registry),
		engine: engine,
		mail:   mail,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func TestAPI_RootAndLiveness(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Caseflow API", string(body))

	resp, _ = env.do(t, http.MethodGet, "/livez", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_HealthCheck(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "healthy", payload["status"])
	assert.InDelta(t, float64(len(builtin.Rules())), payload["rules"], 0)
}

func TestAPI_DispatchEvent(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           any
		expectedStatus int
		expectedCount  int
		expectedError  string
	}{
		{
			name: "new case runs the welcome rule",
			path: "/events/case_created",
			body: map[string]any{
				"case_id": "c-1",
				"client":  map[string]any{"name": "Ada", "email": "ada@example.com"},
			},
			expectedStatus: http.StatusOK,
			expectedCount:  1,
		},
		{
			name:           "no matching rule",
			path:           "/events/custom",
			expectedStatus: http.StatusOK,
			expectedCount:  0,
		},
		{
			name:           "unknown event type",
			path:           "/events/invoice_sent",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Unknown event type",
		},
		{
			name:           "invalid JSON",
			path:           "/events/case_created",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid JSON format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestApp(t)

			resp, body := env.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))

			if tt.expectedError != "" {
				assert.Contains(t, string(body), tt.expectedError)

				return
			}

			var result web.DispatchResponse
			require.NoError(t, json.Unmarshal(body, &result))
			assert.Equal(t, tt.expectedCount, result.Count)
			assert.Len(t, result.Executions, tt.expectedCount)
		})
	}
}

func TestAPI_DispatchEvent_RecordsExecution(t *testing.T) {
	env := setupTestApp(t)

	_, body := env.do(t, http.MethodPost, "/events/case_created", map[string]any{
		"client": map[string]any{"name": "Ada", "email": "ada@example.com"},
	})

	var result web.DispatchResponse
	require.NoError(t, json.Unmarshal(body, &result))
	require.Len(t, result.Executions, 1)

	execution := result.Executions[0]
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, builtin.RuleNewCaseWelcome, execution.WorkflowID)

	require.Len(t, env.mail.sent, 1)
	assert.Equal(t, "ada@example.com", env.mail.sent[0]["to"])
	assert.Equal(t, "Welcome, Ada", env.mail.sent[0]["subject"])

	resp, body := env.do(t, http.MethodGet, "/executions/"+execution.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.WorkflowExecution
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, execution.ID, fetched.ID)
	assert.Len(t, fetched.ExecutionLog, 1)

	resp, body = env.do(t, http.MethodGet, "/rules/"+builtin.RuleNewCaseWelcome+"/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var byRule web.ExecutionsResponse
	require.NoError(t, json.Unmarshal(body, &byRule))
	assert.Equal(t, 1, byRule.Count)

	resp, body = env.do(t, http.MethodGet, "/executions?status=failed", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var failed web.ExecutionsResponse
	require.NoError(t, json.Unmarshal(body, &failed))
	assert.Equal(t, 0, failed.Count)

	resp, body = env.do(t, http.MethodGet, "/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var all web.ExecutionsResponse
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Equal(t, 1, all.Count)
}

func TestAPI_GetExecution_NotFound(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.do(t, http.MethodGet, "/executions/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "execution_not_found")
}

func TestAPI_SaveRule(t *testing.T) {
	valid := web.RuleRequest{
		ID:      "vip-case",
		Name:    "VIP case",
		Trigger: models.WorkflowTrigger{Type: models.TriggerCaseCreated},
		Conditions: []models.WorkflowCondition{
			{Field: "client.vip", Operator: models.OperatorEquals, Value: true},
		},
		Actions: []models.WorkflowAction{
			{Type: models.ActionSendNotification, Config: map[string]any{"message": "VIP case {{case_id}}"}},
		},
		Priority: 200,
	}

	tests := []struct {
		name           string
		request        any
		expectedStatus int
		expectedError  string
	}{
		{name: "valid rule", request: valid, expectedStatus: http.StatusCreated},
		{
			name:           "missing name",
			request:        web.RuleRequest{ID: "x", Trigger: valid.Trigger, Actions: valid.Actions},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Name",
		},
		{
			name:           "no actions",
			request:        web.RuleRequest{ID: "x", Name: "No actions", Trigger: valid.Trigger},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Actions",
		},
		{
			name: "unknown trigger",
			request: web.RuleRequest{
				ID: "x", Name: "Bad trigger", Trigger: models.WorkflowTrigger{Type: "invoice_sent"}, Actions: valid.Actions,
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Unknown trigger type",
		},
		{
			name: "invalid action config",
			request: web.RuleRequest{
				ID: "x", Name: "Bad action", Trigger: valid.Trigger,
				Actions: []models.WorkflowAction{{Type: models.ActionWebhook, Config: map[string]any{}}},
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid action config",
		},
		{
			name: "unknown action type",
			request: web.RuleRequest{
				ID: "x", Name: "Bad action type", Trigger: valid.Trigger,
				Actions: []models.WorkflowAction{{Type: "fax", Config: map[string]any{}}},
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "unknown action type",
		},
		{
			name:           "invalid JSON",
			request:        "[",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid JSON format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestApp(t)

			resp, body := env.do(t, http.MethodPost, "/rules", tt.request)
			require.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))

			if tt.expectedError != "" {
				assert.Contains(t, string(body), tt.expectedError)

				return
			}

			var rule models.WorkflowRule
			require.NoError(t, json.Unmarshal(body, &rule))
			assert.True(t, rule.Enabled)
			assert.False(t, rule.CreatedAt.IsZero())

			stored, ok := env.engine.Rule(rule.ID)
			require.True(t, ok)
			assert.Equal(t, 200, stored.Priority)
		})
	}
}

func TestAPI_SaveRule_ReplaceKeepsCreatedAt(t *testing.T) {
	env := setupTestApp(t)

	request := web.RuleRequest{
		ID:      "replace-me",
		Name:    "First",
		Trigger: models.WorkflowTrigger{Type: models.TriggerCustom},
		Actions: []models.WorkflowAction{
			{Type: models.ActionSendNotification, Config: map[string]any{"message": "hi"}},
		},
	}

	resp, body := env.do(t, http.MethodPost, "/rules", request)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var first models.WorkflowRule
	require.NoError(t, json.Unmarshal(body, &first))

	disabled := false
	request.Name = "Second"
	request.Enabled = &disabled

	resp, body = env.do(t, http.MethodPost, "/rules", request)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var second models.WorkflowRule
	require.NoError(t, json.Unmarshal(body, &second))
	assert.Equal(t, "Second", second.Name)
	assert.False(t, second.Enabled)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
}

func TestAPI_Rules(t *testing.T) {
	env := setupTestApp(t)

	resp, body := env.do(t, http.MethodGet, "/rules", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Rules      []models.WorkflowRule `json:"rules"`
		TotalCount int                   `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, len(builtin.Rules()), list.TotalCount)
	assert.Equal(t, builtin.RuleNewCaseWelcome, list.Rules[0].ID)

	resp, _ = env.do(t, http.MethodGet, "/rules/"+builtin.RuleDeadlineReminder, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/rules/"+builtin.RuleDeadlineReminder, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/rules/"+builtin.RuleDeadlineReminder, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "rule_not_found")

	resp, _ = env.do(t, http.MethodDelete, "/rules/"+builtin.RuleDeadlineReminder, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/rules/missing/executions", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Templates(t *testing.T) {
	env := setupTestApp(t)

	tpl := models.DocumentTemplate{
		ID:        "greeting",
		Name:      "Greeting",
		Content:   "Hello {{name}}!",
		Variables: []models.TemplateVariable{{Name: "name", Type: "string"}},
	}

	resp, body := env.do(t, http.MethodPost, "/templates", tpl)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = env.do(t, http.MethodPost, "/templates", models.DocumentTemplate{ID: "nameless"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/templates/greeting", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Hello {{name}}!")

	resp, body = env.do(t, http.MethodPost, "/templates/greeting/render", web.RenderRequest{
		Data: map[string]any{"name": "World"},
		Name: "Greeting for World",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc models.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "Hello World!", doc.Content)
	assert.Equal(t, "Greeting for World", doc.Name)

	resp, body = env.do(t, http.MethodPost, "/templates/greeting/render", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "Hello !", doc.Content)

	resp, body = env.do(t, http.MethodGet, "/templates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"total_count":4`)

	resp, _ = env.do(t, http.MethodDelete, "/templates/greeting", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/templates/greeting/render", web.RenderRequest{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "template_not_found")
}

func TestAPI_Metrics(t *testing.T) {
	env := setupTestApp(t)

	env.do(t, http.MethodPost, "/events/case_created", map[string]any{
		"client": map[string]any{"email": "ada@example.com"},
	})

	resp, body := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `caseflow_executions_total{status="completed"} 1`)
}
