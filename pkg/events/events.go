// Package events defines the messages exchanged on the caseflow event bus.
package events

import (
	"time"

	"github.com/dukex/caseflow/pkg/models"
)

type EventType string

// Topic carries every caseflow event.
const Topic = "caseflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Ingress.
	TriggerReceivedEvent EventType = "trigger.received"

	// Execution lifecycle.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// TriggerReceived asks the engine to dispatch a domain event.
type TriggerReceived struct {
	BaseEvent

	TriggerType models.TriggerType `json:"trigger_type"`
	Data        map[string]any     `json:"data,omitempty"`
}

func (e TriggerReceived) GetType() EventType {
	return TriggerReceivedEvent
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string             `json:"execution_id"`
	TriggerType models.TriggerType `json:"trigger_type"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Steps       int           `json:"steps"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Error       string        `json:"error"`
	Steps       int           `json:"steps"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Reason      string `json:"reason"`
	Steps       int    `json:"steps"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}
