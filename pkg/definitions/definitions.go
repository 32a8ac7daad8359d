// Package definitions loads rules, templates and schedules from YAML or JSON files.
package definitions

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dukex/caseflow/pkg/actions"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/receivers/schedule"
	"github.com/dukex/caseflow/pkg/templates"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var ErrInvalidDefinition = errors.New("invalid definition")

// Definitions is the content of one or more definition files.
type Definitions struct {
	Rules     []models.WorkflowRule     `json:"rules"     yaml:"rules"     validate:"dive"`
	Templates []models.DocumentTemplate `json:"templates" yaml:"templates" validate:"dive"`
	Schedules []schedule.Entry          `json:"schedules" yaml:"schedules" validate:"dive"`
}

// Target receives loaded definitions.
type Target interface {
	RegisterRule(rule models.WorkflowRule)
	RegisterTemplate(tpl models.DocumentTemplate)
}

// Load reads a single file or every *.yaml, *.yml and *.json file of a
// directory, in lexical order, and validates the merged result.
func Load(path string) (*Definitions, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat definitions path %s: %w", path, err)
	}

	files := []string{path}

	if info.IsDir() {
		files, err = definitionFiles(path)
		if err != nil {
			return nil, err
		}
	}

	defs := &Definitions{}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		parsed, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}

		defs.Rules = append(defs.Rules, parsed.Rules...)
		defs.Templates = append(defs.Templates, parsed.Templates...)
		defs.Schedules = append(defs.Schedules, parsed.Schedules...)
	}

	err = defs.Validate()
	if err != nil {
		return nil, err
	}

	return defs, nil
}

func definitionFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions in %s: %w", dir, err)
	}

	slices.Sort(files)

	return files, nil
}

// Parse decodes one document. JSON is accepted as a subset of YAML.
func Parse(data []byte) (*Definitions, error) {
	defs := &Definitions{}

	err := yaml.Unmarshal(data, defs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	return defs, nil
}

// Validate checks struct tags, trigger and action types, action configs,
// unique ids and schedule entries.
func (d *Definitions) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(d)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	ruleIDs := make(map[string]bool, len(d.Rules))

	for _, rule := range d.Rules {
		if ruleIDs[rule.ID] {
			return fmt.Errorf("%w: duplicate rule id %s", ErrInvalidDefinition, rule.ID)
		}

		ruleIDs[rule.ID] = true

		if !rule.Trigger.Type.Valid() {
			return fmt.Errorf("%w: rule %s: unknown trigger type %q", ErrInvalidDefinition, rule.ID, rule.Trigger.Type)
		}

		err = actions.ValidateRule(rule)
		if err != nil {
			return fmt.Errorf("%w: rule %s: %w", ErrInvalidDefinition, rule.ID, err)
		}
	}

	templateIDs := make(map[string]bool, len(d.Templates))

	for _, tpl := range d.Templates {
		if templateIDs[tpl.ID] {
			return fmt.Errorf("%w: duplicate template id %s", ErrInvalidDefinition, tpl.ID)
		}

		templateIDs[tpl.ID] = true
	}

	if len(d.Schedules) > 0 {
		err = schedule.Validate(d.Schedules)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		}
	}

	return nil
}

// Warnings lists non-fatal problems: templates using undeclared tokens and
// documents that reference templates not defined alongside them.
func (d *Definitions) Warnings() []string {
	var warnings []string

	known := make(map[string]bool, len(d.Templates))

	for _, tpl := range d.Templates {
		known[tpl.ID] = true

		for _, token := range templates.Undeclared(tpl) {
			warnings = append(warnings, fmt.Sprintf("template %s uses undeclared token {{%s}}", tpl.ID, token))
		}
	}

	for _, rule := range d.Rules {
		for i, action := range rule.Actions {
			if action.Type != models.ActionGenerateDocument {
				continue
			}

			id := actions.String(action.Config, "template_id")
			if id != "" && !known[id] && !strings.Contains(id, "{{") {
				warnings = append(warnings, fmt.Sprintf("rule %s action %d references template %s not defined here", rule.ID, i, id))
			}
		}
	}

	return warnings
}

// Apply registers every rule and template on target.
func (d *Definitions) Apply(target Target) {
	for _, tpl := range d.Templates {
		target.RegisterTemplate(tpl)
	}

	for _, rule := range d.Rules {
		target.RegisterRule(rule)
	}
}
