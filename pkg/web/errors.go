package web

import (
	"errors"

	"github.com/campaignhq/automation/pkg/persistence"
	"github.com/campaignhq/automation/pkg/protocol"
	"github.com/campaignhq/automation/pkg/services"
	"github.com/campaignhq/automation/pkg/validation"
	"github.com/campaignhq/automation/pkg/workflow"
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

func notFound(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(problemType).
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

// invalidDefinition lists every problem found in a rejected workflow definition.
func invalidDefinition(c fiber.Ctx, err *validation.Error) error {
	return c.Status(fiber.StatusBadRequest).JSON(ValidationProblem{
		Type:     "invalid_definition",
		Title:    "Bad Request",
		Status:   fiber.StatusBadRequest,
		Detail:   err.Error(),
		Instance: c.Path(),
		Problems: err.Problems,
	})
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	var definitionErr *validation.Error

	switch {
	case errors.As(err, &definitionErr):
		return invalidDefinition(c, definitionErr)

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow_not_found", "workflow not found")

	case persistence.IsExecutionNotFound(err):
		return notFound(c, "execution_not_found", "execution not found")

	case protocol.IsContactNotFound(err):
		return notFound(c, "contact_not_found", "contact not found")

	case workflow.IsRunError(err):
		// The execution is already recorded as FAILED.
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("run_failed").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	default:
		return internalError(c, err)
	}
}
