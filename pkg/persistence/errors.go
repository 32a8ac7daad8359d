package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrRuleNotFound indicates a rule was not found by the given identifier.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrTemplateNotFound indicates a template was not found by the given identifier.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")
)

// RecordError wraps a storage failure with the operation and record involved.
type RecordError struct {
	Op   string // Operation being performed (e.g., "RuleByID", "SaveExecution")
	Kind string // rule, template or execution
	ID   string
	Err  error
}

func (e *RecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s operation failed for %ss: %v", e.Op, e.Kind, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NewRuleError creates an error about a rule record.
func NewRuleError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Kind: "rule", ID: id, Err: err}
}

// NewTemplateError creates an error about a template record.
func NewTemplateError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Kind: "template", ID: id, Err: err}
}

// NewExecutionError creates an error about an execution record.
func NewExecutionError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Kind: "execution", ID: id, Err: err}
}

// IsRuleNotFound checks if an error indicates a rule was not found.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

// IsTemplateNotFound checks if an error indicates a template was not found.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}
