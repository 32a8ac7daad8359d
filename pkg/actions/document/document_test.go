package document_test

import (
	"context"
	"testing"

	"github.com/dukex/caseflow/pkg/actions/document"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Handle(t *testing.T) {
	t.Parallel()

	store := templates.NewStore()
	store.Register(models.DocumentTemplate{
		ID:      "receipt",
		Name:    "Receipt",
		Content: "Received {{amount}} from {{client.name}}",
		Variables: []models.TemplateVariable{
			{Name: "amount"},
			{Name: "client.name"},
		},
		OutputFormat: "text",
	})

	generator := document.New(store)

	result, err := generator.Handle(context.Background(), map[string]any{
		"template_id": "receipt",
		"name":        "Receipt c-1",
		"data":        map[string]any{"amount": "$100"},
	}, map[string]any{
		"amount": "$1",
		"client": map[string]any{"name": "Ana"},
	})
	require.NoError(t, err)

	doc, ok := result.(*models.Document)
	require.True(t, ok)
	assert.Equal(t, "Received $100 from Ana", doc.Content)
	assert.Equal(t, "Receipt c-1", doc.Name)
	assert.Equal(t, "receipt", doc.TemplateID)
}

func TestGenerator_Errors(t *testing.T) {
	t.Parallel()

	generator := document.New(templates.NewStore())

	_, err := generator.Handle(context.Background(), map[string]any{}, nil)
	require.ErrorIs(t, err, document.ErrTemplateIDRequired)

	_, err = generator.Handle(context.Background(), map[string]any{"template_id": "nope"}, nil)
	require.ErrorIs(t, err, templates.ErrTemplateNotFound)
}
