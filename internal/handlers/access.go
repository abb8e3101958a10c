package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/project-nexus/backend/internal/middleware"
	"github.com/project-nexus/backend/internal/services"
	"github.com/project-nexus/backend/pkg/logger"
	"github.com/project-nexus/backend/pkg/utils"
)

// AccessHandler exposes grant management. The delegation rule (owner or
// admin only) lives in the grant service, not here.
type AccessHandler struct {
	Grants *services.GrantService
}

func NewAccessHandler(grants *services.GrantService) *AccessHandler {
	return &AccessHandler{Grants: grants}
}

func (h *AccessHandler) List(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	grants, err := h.Grants.List(c.Context(), actor, c.Params("id"))
	if err != nil {
		return respondServiceError(c, err, "grants_list_failed")
	}

	return utils.Success(c, fiber.StatusOK, grants)
}

type createGrantRequest struct {
	UserID string `json:"userId"`
}

func (h *AccessHandler) Create(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	var req createGrantRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	grant, err := h.Grants.Create(c.Context(), actor, c.Params("id"), req.UserID)
	if err != nil {
		return respondServiceError(c, err, "grant_create_failed")
	}

	logger.InfoWithUser(actor.UserID, "access_granted", map[string]interface{}{
		"project_id": grant.ProjectID,
		"grantee":    grant.GranteeUserID,
	})

	return utils.Success(c, fiber.StatusCreated, grant)
}

func (h *AccessHandler) Revoke(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	projectID := c.Params("id")
	granteeUserID := c.Params("userId")

	if err := h.Grants.Revoke(c.Context(), actor, projectID, granteeUserID); err != nil {
		return respondServiceError(c, err, "grant_revoke_failed")
	}

	logger.InfoWithUser(actor.UserID, "access_revoked", map[string]interface{}{
		"project_id": projectID,
		"grantee":    granteeUserID,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "access revoked"})
}

// SearchUsers backs the sharing dialog's user picker.
func (h *AccessHandler) SearchUsers(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	projectID := c.Query("projectId")
	if projectID == "" {
		return utils.Error(c, fiber.StatusBadRequest, "projectId is required")
	}

	matches, err := h.Grants.SearchUsers(c.Context(), actor, projectID, c.Query("q"))
	if err != nil {
		return respondServiceError(c, err, "user_search_failed")
	}

	return utils.Success(c, fiber.StatusOK, matches)
}
