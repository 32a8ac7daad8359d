// Package document generates documents from registered templates for the
// generate_document action kind.
package document

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/dukex/caseflow/pkg/actions"
	"github.com/dukex/caseflow/pkg/models"
)

// ErrTemplateIDRequired is returned when the action names no template.
var ErrTemplateIDRequired = errors.New("template_id is required")

// Renderer renders a template into a document.
type Renderer interface {
	Render(id string, data map[string]any, name string) (*models.Document, error)
}

// Generator renders the configured template with the event data, optionally
// overlaid with the action's "data" object.
type Generator struct {
	renderer Renderer
}

// New creates a Generator backed by renderer.
func New(renderer Renderer) *Generator {
	return &Generator{renderer: renderer}
}

// Handle implements actions.Handler.
func (g *Generator) Handle(_ context.Context, config map[string]any, eventData map[string]any) (any, error) {
	templateID := actions.String(config, "template_id")
	if templateID == "" {
		return nil, ErrTemplateIDRequired
	}

	data := make(map[string]any, len(eventData))
	maps.Copy(data, eventData)
	maps.Copy(data, actions.Map(config, "data"))

	doc, err := g.renderer.Render(templateID, data, actions.String(config, "name"))
	if err != nil {
		return nil, fmt.Errorf("generate document: %w", err)
	}

	return doc, nil
}
