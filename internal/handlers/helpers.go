package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/project-nexus/backend/internal/services"
	"github.com/project-nexus/backend/pkg/logger"
	"github.com/project-nexus/backend/pkg/utils"
)

// respondServiceError maps service errors to their HTTP status. Anything
// that is not a ServiceError is a storage failure: full detail goes to the
// server log, the caller gets a generic message.
func respondServiceError(c *fiber.Ctx, err error, event string) error {
	if se, ok := services.AsServiceError(err); ok {
		switch se.Code {
		case services.CodeValidation:
			return utils.Error(c, fiber.StatusBadRequest, se.Message)
		case services.CodeForbidden:
			return utils.Error(c, fiber.StatusForbidden, se.Message)
		case services.CodeNotFound:
			return utils.Error(c, fiber.StatusNotFound, se.Message)
		case services.CodeConflict:
			return utils.Error(c, fiber.StatusConflict, se.Message)
		}
	}

	logger.Error(event, err, map[string]interface{}{
		"path": c.Path(),
	})
	return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
}
