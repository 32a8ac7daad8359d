package models

import "time"

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions can happen from s.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// StepStatus is the state of one attempted action.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// WorkflowStep records one attempted action within an execution.
type WorkflowStep struct {
	StepID     string     `json:"step_id"`
	ActionType ActionType `json:"action_type"`
	Status     StepStatus `json:"status"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// WorkflowExecution is the runtime record of one rule's run.
type WorkflowExecution struct {
	ID           string          `json:"id"`
	WorkflowID   string          `json:"workflow_id"`
	TriggerType  TriggerType     `json:"trigger_type"`
	TriggerData  map[string]any  `json:"trigger_data"`
	Status       ExecutionStatus `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ExecutionLog []WorkflowStep  `json:"execution_log"`
}

// Clone returns a copy that shares no slices or maps with e.
func (e *WorkflowExecution) Clone() *WorkflowExecution {
	if e == nil {
		return nil
	}

	c := *e
	c.TriggerData = CloneMap(e.TriggerData)

	if e.CompletedAt != nil {
		completedAt := *e.CompletedAt
		c.CompletedAt = &completedAt
	}

	c.ExecutionLog = make([]WorkflowStep, len(e.ExecutionLog))
	copy(c.ExecutionLog, e.ExecutionLog)

	return &c
}

// CloneMap deep-copies nested maps and slices of a JSON-like value tree.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return v
	}
}
