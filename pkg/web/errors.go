package web

import (
	"github.com/BabaVossRS3/FlowForge/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusBadRequest).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func forbidden(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusForbidden).
		WithInstance(c.Path()).
		WithType("forbidden").
		WithDetail(detail)

	return c.Status(fiber.StatusForbidden).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

var notFoundDetails = map[string]string{
	"workflow_not_found":    "workflow not found",
	"integration_not_found": "integration not found",
	"webhook_not_found":     "webhook not found or workflow is not active",
}

// handleServiceError maps service errors to problem documents: validation errors to 400, missing
// resources to 404 and everything else to 500.
func handleServiceError(c fiber.Ctx, err error) error {
	switch services.Classify(err) {
	case services.KindValidation:
		problem := problems.NewStatusProblem(fiber.StatusBadRequest).
			WithInstance(c.Path()).
			WithType(services.Code(err)).
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case services.KindNotFound:
		code := services.Code(err)

		problem := problems.NewStatusProblem(fiber.StatusNotFound).
			WithInstance(c.Path()).
			WithType(code).
			WithDetail(notFoundDetails[code])

		return c.Status(fiber.StatusNotFound).JSON(problem)

	default:
		return internalError(c, err)
	}
}
