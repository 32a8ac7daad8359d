package models

import "time"

// TemplateVariable is a placeholder declared by a document template.
// Name is both the dotted lookup path and the literal {{Name}} token.
type TemplateVariable struct {
	Name         string `json:"name"                    yaml:"name"                    validate:"required"`
	Type         string `json:"type"                    yaml:"type"`
	Required     bool   `json:"required"                yaml:"required"`
	DefaultValue any    `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	Description  string `json:"description,omitempty"   yaml:"description,omitempty"`
}

// DocumentTemplate is named document content with placeholder variables.
type DocumentTemplate struct {
	ID           string             `json:"id"            yaml:"id"            validate:"required"`
	Name         string             `json:"name"          yaml:"name"          validate:"required"`
	Description  string             `json:"description"   yaml:"description"`
	TemplateType string             `json:"template_type" yaml:"template_type"`
	Content      string             `json:"content"       yaml:"content"`
	Variables    []TemplateVariable `json:"variables"     yaml:"variables"     validate:"dive"`
	OutputFormat string             `json:"output_format" yaml:"output_format"`
}

// Document is the result of rendering a template.
type Document struct {
	ID          string         `json:"id"`
	TemplateID  string         `json:"template_id"`
	Name        string         `json:"name"`
	Content     string         `json:"content"`
	Format      string         `json:"format"`
	GeneratedAt time.Time      `json:"generated_at"`
	Data        map[string]any `json:"data"`
}
