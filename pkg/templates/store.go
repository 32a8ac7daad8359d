// Package templates holds document templates and renders them against event data.
package templates

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dukex/caseflow/pkg/conditions"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/google/uuid"
)

// ErrTemplateNotFound is returned when rendering or fetching an unregistered template.
var ErrTemplateNotFound = errors.New("template not found")

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Store is an in-memory, concurrency-safe collection of document templates.
type Store struct {
	mu        sync.RWMutex
	templates map[string]*models.DocumentTemplate
	order     []string
	now       func() time.Time
}

// NewStore creates an empty template store.
func NewStore() *Store {
	return &Store{
		templates: make(map[string]*models.DocumentTemplate),
		now:       time.Now,
	}
}

// Register adds a template, replacing any template with the same id.
func (s *Store) Register(tpl models.DocumentTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[tpl.ID]; !exists {
		s.order = append(s.order, tpl.ID)
	}

	stored := tpl
	stored.Variables = append([]models.TemplateVariable(nil), tpl.Variables...)
	s.templates[tpl.ID] = &stored
}

// Get returns a copy of the template registered under id.
func (s *Store) Get(id string) (models.DocumentTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.templates[id]
	if !ok {
		return models.DocumentTemplate{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}

	return *tpl, nil
}

// List returns every template in registration order.
func (s *Store) List() []models.DocumentTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DocumentTemplate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.templates[id])
	}

	return out
}

// Remove deletes a template. It reports whether the template existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[id]; !ok {
		return false
	}

	delete(s.templates, id)

	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)

			break
		}
	}

	return true
}

// Render substitutes every declared variable of the template into its content.
//
// Each variable resolves from data at its dotted name, then its default value,
// then the empty string. Tokens without a declared variable are left as they are.
// An empty name defaults to "<template name> - <YYYY-MM-DD>".
func (s *Store) Render(id string, data map[string]any, name string) (*models.Document, error) {
	tpl, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	content := tpl.Content

	for _, variable := range tpl.Variables {
		content = strings.ReplaceAll(content, "{{"+variable.Name+"}}", resolve(variable, data))
	}

	if name == "" {
		name = fmt.Sprintf("%s - %s", tpl.Name, now.Format(time.DateOnly))
	}

	return &models.Document{
		ID:          "doc-" + uuid.New().String()[:8],
		TemplateID:  tpl.ID,
		Name:        name,
		Content:     content,
		Format:      tpl.OutputFormat,
		GeneratedAt: now.UTC(),
		Data:        models.CloneMap(data),
	}, nil
}

func resolve(variable models.TemplateVariable, data map[string]any) string {
	if value, ok := conditions.Lookup(data, variable.Name); ok && value != nil {
		return conditions.FormatValue(value)
	}

	if variable.DefaultValue != nil {
		return conditions.FormatValue(variable.DefaultValue)
	}

	return ""
}

// Placeholders returns the distinct {{token}} names found in content, in order of appearance.
func Placeholders(content string) []string {
	seen := make(map[string]bool)

	var tokens []string

	for _, match := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		token := match[1]
		if seen[token] {
			continue
		}

		seen[token] = true
		tokens = append(tokens, token)
	}

	return tokens
}

// Undeclared returns the placeholders of tpl that have no declared variable.
func Undeclared(tpl models.DocumentTemplate) []string {
	declared := make(map[string]bool, len(tpl.Variables))
	for _, variable := range tpl.Variables {
		declared[variable.Name] = true
	}

	var missing []string

	for _, token := range Placeholders(tpl.Content) {
		if !declared[token] {
			missing = append(missing, token)
		}
	}

	return missing
}
