package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/project-nexus/backend/internal/middleware"
	"github.com/project-nexus/backend/internal/services"
	"github.com/project-nexus/backend/pkg/logger"
	"github.com/project-nexus/backend/pkg/utils"
)

type ProjectsHandler struct {
	Projects *services.ProjectService
}

func NewProjectsHandler(projects *services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{Projects: projects}
}

// List returns the actor's visible projects. Only an admin may request the
// global view; a non-admin asking for it is an explicit delegation
// violation, not something to silently narrow.
func (h *ProjectsHandler) List(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	all := c.QueryBool("all", false)
	if all && !actor.IsAdmin() {
		return utils.Error(c, fiber.StatusForbidden, "admin access required")
	}

	projects, err := h.Projects.List(c.Context(), actor, all)
	if err != nil {
		return respondServiceError(c, err, "projects_list_failed")
	}

	return utils.Success(c, fiber.StatusOK, projects)
}

func (h *ProjectsHandler) ListShared(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	projects, err := h.Projects.ListShared(c.Context(), actor)
	if err != nil {
		return respondServiceError(c, err, "projects_shared_list_failed")
	}

	return utils.Success(c, fiber.StatusOK, projects)
}

func (h *ProjectsHandler) Get(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	project, err := h.Projects.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return respondServiceError(c, err, "project_get_failed")
	}

	return utils.Success(c, fiber.StatusOK, project)
}

func (h *ProjectsHandler) Create(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	var in services.ProjectInput
	if err := c.BodyParser(&in); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	project, err := h.Projects.Create(c.Context(), actor, in)
	if err != nil {
		return respondServiceError(c, err, "project_create_failed")
	}

	logger.InfoWithUser(actor.UserID, "project_created", map[string]interface{}{
		"project_id": project.ID,
		"owner":      project.OwnerUserID,
	})

	return utils.Success(c, fiber.StatusCreated, project)
}

func (h *ProjectsHandler) Update(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	var in services.ProjectInput
	if err := c.BodyParser(&in); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	project, err := h.Projects.Update(c.Context(), actor, c.Params("id"), in)
	if err != nil {
		return respondServiceError(c, err, "project_update_failed")
	}

	return utils.Success(c, fiber.StatusOK, project)
}

func (h *ProjectsHandler) Delete(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	id := c.Params("id")
	if err := h.Projects.Delete(c.Context(), actor, id); err != nil {
		return respondServiceError(c, err, "project_delete_failed")
	}

	logger.InfoWithUser(actor.UserID, "project_deleted", map[string]interface{}{
		"project_id": id,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "project deleted"})
}
