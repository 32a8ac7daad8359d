package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrUnknownActionType is returned for action types outside the supported set.
var ErrUnknownActionType = errors.New("unknown action type")

// ActionType is the closed set of side effects a rule can perform.
type ActionType string

const (
	ActionSendEmail           ActionType = "send_email"
	ActionCreateTask          ActionType = "create_task"
	ActionUpdateCase          ActionType = "update_case"
	ActionGenerateDocument    ActionType = "generate_document"
	ActionCreateCalendarEvent ActionType = "create_calendar_event"
	ActionSendNotification    ActionType = "send_notification"
	ActionRunScript           ActionType = "run_script"
	ActionWebhook             ActionType = "webhook"
)

// ActionTypes lists every supported action type.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionSendEmail,
		ActionCreateTask,
		ActionUpdateCase,
		ActionGenerateDocument,
		ActionCreateCalendarEvent,
		ActionSendNotification,
		ActionRunScript,
		ActionWebhook,
	}
}

// Valid reports whether t is one of the supported action types.
func (t ActionType) Valid() bool {
	for _, known := range ActionTypes() {
		if t == known {
			return true
		}
	}

	return false
}

// ParseActionType converts s into an ActionType.
func ParseActionType(s string) (ActionType, error) {
	t := ActionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownActionType, s)
	}

	return t, nil
}

// WorkflowAction is one side-effecting step of a rule.
// Delay is in seconds and is waited before the action runs.
type WorkflowAction struct {
	Type   ActionType     `json:"type"            yaml:"type"            validate:"required"`
	Config map[string]any `json:"config"          yaml:"config"`
	Delay  int            `json:"delay,omitempty" yaml:"delay,omitempty" validate:"min=0"`
}

// UnmarshalJSON decodes an action, rejecting unknown action types. A missing
// type is left to struct validation.
func (a *WorkflowAction) UnmarshalJSON(data []byte) error {
	type plain WorkflowAction

	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	return a.set(WorkflowAction(decoded))
}

// UnmarshalYAML is the YAML counterpart of UnmarshalJSON.
func (a *WorkflowAction) UnmarshalYAML(node *yaml.Node) error {
	type plain WorkflowAction

	var decoded plain
	if err := node.Decode(&decoded); err != nil {
		return err
	}

	return a.set(WorkflowAction(decoded))
}

func (a *WorkflowAction) set(decoded WorkflowAction) error {
	if decoded.Type != "" {
		if _, err := ParseActionType(string(decoded.Type)); err != nil {
			return err
		}
	}

	*a = decoded

	return nil
}
