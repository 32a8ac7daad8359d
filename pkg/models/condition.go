package models

// Operator is the comparison a condition applies to the resolved field value.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorIn          Operator = "in"
	OperatorNotIn       Operator = "not_in"
	OperatorExists      Operator = "exists"
	OperatorNotExists   Operator = "not_exists"
)

// LogicalOperator chains a condition to the one that follows it.
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// WorkflowCondition is a single comparison against event data.
// Logical governs how the next condition in the list is combined, not this one.
type WorkflowCondition struct {
	Field    string          `json:"field"             yaml:"field"             validate:"required"`
	Operator Operator        `json:"operator"          yaml:"operator"          validate:"required"`
	Value    any             `json:"value,omitempty"   yaml:"value,omitempty"`
	Logical  LogicalOperator `json:"logical,omitempty" yaml:"logical,omitempty" validate:"omitempty,oneof=AND OR"`
}
