package builtin_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/caseflow/pkg/actions/script"
	"github.com/dukex/caseflow/pkg/builtin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScripts_DaysUntil(t *testing.T) {
	scripts := script.New(slog.Default())
	builtin.RegisterScripts(scripts, func() time.Time {
		return time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC)
	})

	assert.Equal(t, []string{builtin.ScriptDaysUntil, builtin.ScriptEcho}, scripts.Names())

	tests := []struct {
		name   string
		date   any
		days   int
		errMsg string
	}{
		{name: "date only", date: "2026-10-22", days: 3},
		{name: "rfc3339", date: "2026-10-20T01:00:00Z", days: 1},
		{name: "past", date: "2026-10-17", days: -2},
		{name: "missing", date: nil, errMsg: `"date" is required`},
		{name: "invalid", date: "next week", errMsg: "invalid date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := map[string]any{
				"script": builtin.ScriptDaysUntil,
				"args":   map[string]any{"date": tt.date},
			}

			result, err := scripts.Handle(context.Background(), config, nil)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, map[string]any{"days_until_due": tt.days}, result)
		})
	}
}

func TestScripts_Echo(t *testing.T) {
	scripts := script.New(slog.Default())
	builtin.RegisterScripts(scripts, time.Now)

	result, err := scripts.Handle(context.Background(), map[string]any{
		"script": builtin.ScriptEcho,
		"args":   map[string]any{"x": 1},
	}, map[string]any{"case_id": "c-1"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"args":  map[string]any{"x": 1},
		"event": map[string]any{"case_id": "c-1"},
	}, result)
}
