package web

import (
	"errors"

	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/dukex/caseflow/pkg/templates"
	"github.com/dukex/caseflow/pkg/tracker"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleEngineError maps lookup failures to 404 and everything else to 500.
func handleEngineError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsRuleNotFound(err):
		return notFound(c, "rule_not_found", "rule not found")
	case persistence.IsTemplateNotFound(err), errors.Is(err, templates.ErrTemplateNotFound):
		return notFound(c, "template_not_found", "template not found")
	case persistence.IsExecutionNotFound(err), errors.Is(err, tracker.ErrExecutionNotFound):
		return notFound(c, "execution_not_found", "execution not found")
	default:
		return internalError(c, err)
	}
}
