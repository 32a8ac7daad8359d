package templates

import (
	"testing"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greeting() models.DocumentTemplate {
	return models.DocumentTemplate{
		ID:           "greeting",
		Name:         "Greeting",
		Content:      "Hello {{name}}!",
		Variables:    []models.TemplateVariable{{Name: "name", Type: "string"}},
		OutputFormat: "text",
	}
}

func TestStore_Render(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Register(greeting())

	doc, err := store.Render("greeting", map[string]any{"name": "World"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", doc.Content)
	assert.NotContains(t, doc.Content, "{{name}}")
	assert.Equal(t, "text", doc.Format)
	assert.Equal(t, "greeting", doc.TemplateID)
	assert.Equal(t, "World", doc.Data["name"])

	doc, err = store.Render("greeting", map[string]any{}, "")
	require.NoError(t, err)
	assert.Equal(t, "Hello !", doc.Content)
}

func TestStore_Render_DefaultsAndNestedPaths(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Register(models.DocumentTemplate{
		ID:      "letter",
		Name:    "Engagement Letter",
		Content: "Dear {{client.name}}, your matter {{case.number}} is with {{firm}}. {{firm}} thanks you. {{unknown.token}}",
		Variables: []models.TemplateVariable{
			{Name: "client.name"},
			{Name: "case.number", DefaultValue: "TBD"},
			{Name: "firm", DefaultValue: "Acme LLP"},
		},
	})

	doc, err := store.Render("letter", map[string]any{
		"client": map[string]any{"name": "Jane"},
		"firm":   "Smith & Co",
	}, "Jane letter")
	require.NoError(t, err)

	assert.Equal(t, "Dear Jane, your matter TBD is with Smith & Co. Smith & Co thanks you. {{unknown.token}}", doc.Content)
	assert.Equal(t, "Jane letter", doc.Name)
}

func TestStore_Render_DefaultName(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	store.Register(greeting())

	doc, err := store.Render("greeting", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "Greeting - 2026-03-14", doc.Name)
}

func TestStore_Render_NotFound(t *testing.T) {
	t.Parallel()

	_, err := NewStore().Render("missing", nil, "")
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestStore_RegisterListRemove(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Register(greeting())
	store.Register(models.DocumentTemplate{ID: "second", Name: "Second"})

	replaced := greeting()
	replaced.Content = "Hi {{name}}"
	store.Register(replaced)

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "greeting", list[0].ID)
	assert.Equal(t, "Hi {{name}}", list[0].Content)

	assert.True(t, store.Remove("greeting"))
	assert.False(t, store.Remove("greeting"))

	_, err := store.Get("greeting")
	require.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Len(t, store.List(), 1)
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b.c"}, Placeholders("{{a}} {{ b.c }} {{a}}"))
	assert.Empty(t, Placeholders("no tokens"))

	tpl := greeting()
	tpl.Content = "{{name}} {{date}}"
	assert.Equal(t, []string{"date"}, Undeclared(tpl))
}
