package web

import (
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/gofiber/fiber/v3"
)

// GetIntegrations returns the caller's decrypted credentials keyed by integration id.
func (h *APIHandlers) GetIntegrations(c fiber.Ctx) error {
	user := userID(c)
	if user == "" {
		return forbidden(c, UserIDHeader+" header is required")
	}

	integrations, err := h.credentials.ListCredentials(c.Context(), user)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(integrations)
}

// GetIntegration answers an empty object for integrations the caller never configured.
func (h *APIHandlers) GetIntegration(c fiber.Ctx) error {
	user := userID(c)
	if user == "" {
		return forbidden(c, UserIDHeader+" header is required")
	}

	creds, err := h.credentials.GetCredentials(c.Context(), user, c.Params("integrationId"))
	if persistence.IsIntegrationNotFound(err) {
		return c.JSON(map[string]string{})
	}

	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(creds)
}

func (h *APIHandlers) UpdateIntegration(c fiber.Ctx) error {
	user := userID(c)
	if user == "" {
		return forbidden(c, UserIDHeader+" header is required")
	}

	var fields map[string]string
	if err := c.Bind().JSON(&fields); err != nil {
		return badRequest(c, "Credentials must be a JSON object of strings")
	}

	creds, err := h.credentials.SetCredentials(c.Context(), user, c.Params("integrationId"), fields)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(IntegrationUpdateResponse{
		Success:     true,
		Message:     "Integration updated successfully",
		Credentials: creds,
	})
}

func (h *APIHandlers) DeleteIntegration(c fiber.Ctx) error {
	user := userID(c)
	if user == "" {
		return forbidden(c, UserIDHeader+" header is required")
	}

	if err := h.credentials.DeleteCredentials(c.Context(), user, c.Params("integrationId")); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(IntegrationUpdateResponse{Success: true, Message: "Integration deleted successfully"})
}
