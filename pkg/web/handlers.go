// Package web provides the HTTP API: workflow management, trigger receivers and integration
// credentials.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/credentials"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// DefaultWhatsAppVerifyToken is accepted by the WhatsApp subscription handshake when no token is configured.
const DefaultWhatsAppVerifyToken = "flowforge_webhook_token"

type APIHandlers struct {
	workflowService *services.Workflow
	triggers        *services.Triggers
	credentials     *credentials.Store
	validator       *validator.Validate
	logger          *slog.Logger
	verifyToken     string
}

type Option func(*APIHandlers)

// WithWhatsAppVerifyToken sets the token expected by the WhatsApp subscription handshake.
func WithWhatsAppVerifyToken(token string) Option {
	return func(h *APIHandlers) {
		if token != "" {
			h.verifyToken = token
		}
	}
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	triggers *services.Triggers,
	credentialStore *credentials.Store,
	validator *validator.Validate,
	logger *slog.Logger,
	opts ...Option,
) *APIHandlers {
	h := &APIHandlers{
		workflowService: workflowService,
		triggers:        triggers,
		credentials:     credentialStore,
		validator:       validator,
		logger:          logger.With("module", "web"),
		verifyToken:     DefaultWhatsAppVerifyToken,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Register mounts every route on the router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/execute", h.ExecuteWorkflow)
	w.Get("/:id/logs", h.GetWorkflowLogs)
	w.Post("/:id/validate", h.ValidateWorkflow)

	router.All("/webhooks/:webhookId", h.ReceiveWebhook)

	chat := router.Group("/chat-webhooks")
	chat.Post("/slack", h.ReceiveSlack)
	chat.Get("/whatsapp", h.VerifyWhatsApp)
	chat.Post("/whatsapp", h.ReceiveWhatsApp)
	chat.Post("/telegram", h.ReceiveTelegram)
	chat.Post("/discord", h.ReceiveDiscord)
	chat.Post("/teams", h.ReceiveTeams)

	i := router.Group("/integrations")
	i.Get("/", h.GetIntegrations)
	i.Get("/:integrationId", h.GetIntegration)
	i.Put("/:integrationId", h.UpdateIntegration)
	i.Delete("/:integrationId", h.DeleteIntegration)
}

func userID(c fiber.Ctx) string {
	return c.Get(UserIDHeader)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "FlowForge API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "FlowForge API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context(), userID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), userID(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), userID(c), &models.Workflow{
		Name:        req.Name,
		Description: req.Description,
		Nodes:       nonNil(req.Nodes),
		Edges:       nonNil(req.Edges),
		IsActive:    req.IsActive,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.workflowService.Update(c.Context(), userID(c), c.Params("id"), services.UpdateWorkflowRequest{
		Name:        req.Name,
		Description: req.Description,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflowService.Delete(c.Context(), userID(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteWorkflow runs the workflow manually. A run that ends in failure answers 400 with the
// recorded entry.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteWorkflowRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	entry, err := h.workflowService.Execute(c.Context(), userID(c), c.Params("id"), services.ExecuteRequest{
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		TriggerData: req.TriggerData,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	if entry.Status == models.ExecutionStatusFailure {
		return c.Status(fiber.StatusBadRequest).JSON(ExecuteWorkflowResponse{
			Message: "Workflow execution failed",
			Error:   entry.Error,
			Log:     entry,
		})
	}

	return c.JSON(ExecuteWorkflowResponse{Message: "Workflow executed", Log: entry})
}

func (h *APIHandlers) GetWorkflowLogs(c fiber.Ctx) error {
	logs, err := h.workflowService.Logs(c.Context(), userID(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(logs)
}

func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	report, err := h.workflowService.Validate(c.Context(), userID(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
