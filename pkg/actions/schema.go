package actions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidConfig is returned when an action configuration does not satisfy
// its kind's schema.
var ErrInvalidConfig = errors.New("invalid action config")

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "minLength": 1, "description": description}
}

func objectSchema(required []string, properties map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// Schema returns the JSON schema describing the configuration of an action kind.
// Values may hold {{path}} tokens, so only required string fields are typed.
func Schema(t models.ActionType) (map[string]any, error) {
	switch t {
	case models.ActionSendEmail:
		return objectSchema([]string{"to"}, map[string]any{
			"to":       stringProp("Recipient address"),
			"subject":  map[string]any{"type": "string"},
			"template": map[string]any{"type": "string"},
			"body":     map[string]any{"type": "string"},
		}), nil
	case models.ActionCreateTask:
		return objectSchema([]string{"title"}, map[string]any{
			"title":       stringProp("Task title"),
			"assignee":    map[string]any{"type": "string"},
			"due_in_days": map[string]any{"type": []string{"integer", "string"}},
		}), nil
	case models.ActionUpdateCase:
		return objectSchema([]string{"case_id"}, map[string]any{
			"case_id": stringProp("Case to update"),
			"fields":  map[string]any{"type": "object"},
		}), nil
	case models.ActionGenerateDocument:
		return objectSchema([]string{"template_id"}, map[string]any{
			"template_id": stringProp("Registered template id"),
			"name":        map[string]any{"type": "string"},
			"data":        map[string]any{"type": "object"},
		}), nil
	case models.ActionCreateCalendarEvent:
		return objectSchema([]string{"title"}, map[string]any{
			"title":    stringProp("Event title"),
			"start":    map[string]any{"type": "string"},
			"duration": map[string]any{"type": []string{"integer", "string"}},
		}), nil
	case models.ActionSendNotification:
		return objectSchema([]string{"message"}, map[string]any{
			"message":   stringProp("Notification text"),
			"recipient": map[string]any{"type": "string"},
			"channel":   map[string]any{"type": "string"},
		}), nil
	case models.ActionRunScript:
		return objectSchema([]string{"script"}, map[string]any{
			"script": stringProp("Registered script name"),
			"args":   map[string]any{"type": "object"},
		}), nil
	case models.ActionWebhook:
		return objectSchema([]string{"url"}, map[string]any{
			"url": stringProp("Endpoint URL"),
			"method": map[string]any{
				"type": "string",
				"enum": []string{"GET", "POST", "PUT", "PATCH", "DELETE", "get", "post", "put", "patch", "delete"},
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"timeout": map[string]any{"type": []string{"integer", "string"}},
			"retry":   map[string]any{"type": "object"},
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownActionType, t)
	}
}

// ValidateConfig checks an action's configuration against its kind's schema.
func ValidateConfig(action models.WorkflowAction) error {
	schema, err := Schema(action.Type)
	if err != nil {
		return err
	}

	config := action.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("validate %s config: %w", action.Type, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, action.Type, strings.Join(messages, "; "))
	}

	return nil
}

// ValidateRule validates the configuration of every action in rule.
func ValidateRule(rule models.WorkflowRule) error {
	for i, action := range rule.Actions {
		if err := ValidateConfig(action); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}

	return nil
}
