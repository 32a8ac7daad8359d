package registry_test

import (
	"log/slog"
	"testing"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(id string, trigger models.TriggerType, enabled bool) models.WorkflowRule {
	return models.WorkflowRule{
		ID:      id,
		Name:    "rule " + id,
		Trigger: models.WorkflowTrigger{Type: trigger},
		Enabled: enabled,
	}
}

func TestRules_RegisterAndList(t *testing.T) {
	t.Parallel()

	rules := registry.NewRules(slog.Default())
	rules.Register(rule("a", models.TriggerCaseCreated, true))
	rules.Register(rule("b", models.TriggerTaskCompleted, true))
	rules.Register(rule("c", models.TriggerCaseCreated, true))

	list := rules.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, 3, rules.Len())
}

func TestRules_RegisterOverwritesInPlace(t *testing.T) {
	t.Parallel()

	rules := registry.NewRules(slog.Default())
	rules.Register(rule("a", models.TriggerCaseCreated, true))
	rules.Register(rule("b", models.TriggerCaseCreated, true))

	replacement := rule("a", models.TriggerCaseCreated, true)
	replacement.Name = "replaced"
	rules.Register(replacement)

	list := rules.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "replaced", list[0].Name)

	got, ok := rules.Get("a")
	require.True(t, ok)
	assert.Equal(t, "replaced", got.Name)
}

func TestRules_ByTrigger(t *testing.T) {
	t.Parallel()

	rules := registry.NewRules(slog.Default())
	rules.Register(rule("a", models.TriggerCaseCreated, true))
	rules.Register(rule("disabled", models.TriggerCaseCreated, false))
	rules.Register(rule("other", models.TriggerPaymentReceived, true))
	rules.Register(rule("b", models.TriggerCaseCreated, true))

	matched := rules.ByTrigger(models.TriggerCaseCreated)
	require.Len(t, matched, 2)
	assert.Equal(t, "a", matched[0].ID)
	assert.Equal(t, "b", matched[1].ID)

	assert.Empty(t, rules.ByTrigger("case"))
}

func TestRules_Remove(t *testing.T) {
	t.Parallel()

	rules := registry.NewRules(slog.Default())
	rules.Register(rule("a", models.TriggerCaseCreated, true))

	assert.True(t, rules.Remove("a"))
	assert.False(t, rules.Remove("a"))

	_, ok := rules.Get("a")
	assert.False(t, ok)
	assert.Empty(t, rules.List())
}
