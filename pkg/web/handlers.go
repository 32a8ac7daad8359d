// Package web provides the HTTP API for event ingress, rule and template
// authoring and execution queries.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/caseflow/pkg/actions"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	engine    *workflow.Engine
	validator *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

func NewAPIHandlers(logger *slog.Logger, engine *workflow.Engine, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		engine:    engine,
		validator: validator,
		logger:    logger.With("module", "api"),
		now:       time.Now,
	}
}

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Post("/events/:type", h.DispatchEvent)

	r := router.Group("/rules")
	r.Get("/", h.GetRules)
	r.Post("/", h.SaveRule)
	r.Get("/:id", h.GetRule)
	r.Delete("/:id", h.DeleteRule)
	r.Get("/:id/executions", h.GetRuleExecutions)

	e := router.Group("/executions")
	e.Get("/", h.GetExecutions)
	e.Get("/:id", h.GetExecution)

	t := router.Group("/templates")
	t.Get("/", h.GetTemplates)
	t.Post("/", h.SaveTemplate)
	t.Get("/:id", h.GetTemplate)
	t.Delete("/:id", h.DeleteTemplate)
	t.Post("/:id/render", h.RenderTemplate)

	router.Get("/health", h.HealthCheck)
}

// DispatchEvent runs the body as event data against every matching rule.
func (h *APIHandlers) DispatchEvent(c fiber.Ctx) error {
	triggerType := models.TriggerType(c.Params("type"))
	if !triggerType.Valid() {
		return badRequest(c, "Unknown event type: "+string(triggerType))
	}

	data := map[string]any{}

	if len(c.Body()) > 0 {
		err := json.Unmarshal(c.Body(), &data)
		if err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	executions := h.engine.Dispatch(c.Context(), triggerType, data)

	h.logger.InfoContext(c.Context(), "Event dispatched", "trigger_type", triggerType, "executions", len(executions))

	return c.JSON(DispatchResponse{
		TriggerType: triggerType,
		Count:       len(executions),
		Executions:  executions,
	})
}

func (h *APIHandlers) GetRules(c fiber.Ctx) error {
	rules := h.engine.Rules()

	return c.JSON(fiber.Map{
		"rules":       rules,
		"total_count": len(rules),
	})
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	rule, ok := h.engine.Rule(c.Params("id"))
	if !ok {
		return notFound(c, "rule_not_found", "Rule not found")
	}

	return c.JSON(rule)
}

// SaveRule creates a rule or replaces the one with the same id, keeping its
// creation time.
func (h *APIHandlers) SaveRule(c fiber.Ctx) error {
	var req RuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !req.Trigger.Type.Valid() {
		return badRequest(c, "Unknown trigger type: "+string(req.Trigger.Type))
	}

	rule := req.Rule()

	if err := actions.ValidateRule(rule); err != nil {
		return badRequest(c, err.Error())
	}

	now := h.now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	status := fiber.StatusCreated

	if existing, ok := h.engine.Rule(rule.ID); ok {
		rule.CreatedAt = existing.CreatedAt
		status = fiber.StatusOK
	}

	err := h.engine.SaveRule(c.Context(), rule)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(status).JSON(rule)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	err := h.engine.DeleteRule(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetRuleExecutions(c fiber.Ctx) error {
	id := c.Params("id")

	if _, ok := h.engine.Rule(id); !ok {
		return notFound(c, "rule_not_found", "Rule not found")
	}

	executions := h.engine.ExecutionsForRule(c.Context(), id)

	return c.JSON(ExecutionsResponse{Count: len(executions), Executions: executions})
}

// GetExecutions lists executions held in memory, optionally filtered by ?status=.
func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	status := models.ExecutionStatus(c.Query("status"))

	executions := make([]*models.WorkflowExecution, 0)

	for _, execution := range h.engine.Executions() {
		if status == "" || execution.Status == status {
			executions = append(executions, execution)
		}
	}

	return c.JSON(ExecutionsResponse{Count: len(executions), Executions: executions})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.engine.GetExecution(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	tpls := h.engine.Templates()

	return c.JSON(fiber.Map{
		"templates":   tpls,
		"total_count": len(tpls),
	})
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	tpl, err := h.engine.Template(c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(tpl)
}

func (h *APIHandlers) SaveTemplate(c fiber.Ctx) error {
	var tpl models.DocumentTemplate
	if err := c.Bind().JSON(&tpl); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(tpl); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.engine.SaveTemplate(c.Context(), tpl)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(tpl)
}

func (h *APIHandlers) DeleteTemplate(c fiber.Ctx) error {
	err := h.engine.DeleteTemplate(c.Context(), c.Params("id"))
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RenderTemplate(c fiber.Ctx) error {
	var req RenderRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	doc, err := h.engine.Render(c.Params("id"), req.Data, req.Name)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(doc)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Caseflow API is healthy"
	httpStatus := http.StatusOK
	persistenceCheck := "ok"

	if err := h.engine.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Caseflow API is unhealthy"
		httpStatus = http.StatusServiceUnavailable
		persistenceCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"persistence": persistenceCheck,
		},
		"rules":     len(h.engine.Rules()),
		"timestamp": h.now().UTC(),
	})
}
