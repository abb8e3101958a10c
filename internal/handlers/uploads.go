package handlers

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/project-nexus/backend/internal/config"
	"github.com/project-nexus/backend/internal/middleware"
	"github.com/project-nexus/backend/internal/models"
	"github.com/project-nexus/backend/internal/services"
	"github.com/project-nexus/backend/pkg/logger"
	"github.com/project-nexus/backend/pkg/utils"
)

// DocStorage is the object-storage collaborator for attachments. It only
// ever gets asked to store after the core confirms the actor may write to
// the project.
type DocStorage interface {
	PutProjectDoc(ctx context.Context, projectID, docID, filename string, reader io.Reader, size int64, contentType string) (key, url string, err error)
	RemoveProjectDoc(ctx context.Context, key string) error
}

type UploadsHandler struct {
	Projects *services.ProjectService
	Access   *services.AccessService
	Storage  DocStorage
	Uploads  config.UploadConfig
}

func NewUploadsHandler(projects *services.ProjectService, access *services.AccessService, storage DocStorage, uploads config.UploadConfig) *UploadsHandler {
	return &UploadsHandler{Projects: projects, Access: access, Storage: storage, Uploads: uploads}
}

func (h *UploadsHandler) extensionAllowed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range h.Uploads.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Upload stores attachments for a project. Access is checked before any
// byte reaches storage; the metadata append re-checks via the scoped update.
func (h *UploadsHandler) Upload(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	projectID := c.Params("id")
	if _, err := h.Access.RequireWritable(c.Context(), actor, projectID); err != nil {
		return respondServiceError(c, err, "upload_access_check_failed")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid multipart form")
	}

	files := form.File["files"]
	if len(files) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no files provided")
	}
	if len(files) > h.Uploads.MaxFilesPerUpload {
		return utils.Error(c, fiber.StatusBadRequest,
			fmt.Sprintf("at most %d files per upload", h.Uploads.MaxFilesPerUpload))
	}

	for _, file := range files {
		if file.Size > h.Uploads.MaxFileSize {
			return utils.Error(c, fiber.StatusBadRequest,
				fmt.Sprintf("file %q exceeds the size limit", file.Filename))
		}
		if !h.extensionAllowed(file.Filename) {
			return utils.Error(c, fiber.StatusBadRequest,
				fmt.Sprintf("file type %q not allowed", filepath.Ext(file.Filename)))
		}
	}

	docs := make([]models.Doc, 0, len(files))
	for _, file := range files {
		src, err := file.Open()
		if err != nil {
			logger.Error("upload_open_failed", err, map[string]interface{}{
				"project_id": projectID,
				"filename":   file.Filename,
			})
			return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
		}

		docID := uuid.NewString()
		key, url, err := h.Storage.PutProjectDoc(
			c.Context(), projectID, docID, file.Filename, src, file.Size,
			file.Header.Get("Content-Type"),
		)
		src.Close()
		if err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed storing file")
		}

		docs = append(docs, models.Doc{
			ID:         docID,
			Name:       file.Filename,
			Key:        key,
			URL:        url,
			Size:       file.Size,
			UploadedAt: time.Now().UTC().Format("2006-01-02"),
		})
	}

	project, err := h.Projects.AppendDocs(c.Context(), actor, projectID, docs)
	if err != nil {
		return respondServiceError(c, err, "upload_append_failed")
	}

	logger.InfoWithUser(actor.UserID, "docs_uploaded", map[string]interface{}{
		"project_id": projectID,
		"count":      len(docs),
	})

	return utils.Success(c, fiber.StatusCreated, project)
}

func (h *UploadsHandler) Delete(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	projectID := c.Params("id")
	docID := c.Params("docId")

	doc, err := h.Projects.RemoveDoc(c.Context(), actor, projectID, docID)
	if err != nil {
		return respondServiceError(c, err, "doc_delete_failed")
	}

	if doc.Key != "" {
		if err := h.Storage.RemoveProjectDoc(c.Context(), doc.Key); err != nil {
			logger.Error("doc_storage_delete_failed", err, map[string]interface{}{
				"project_id": projectID,
				"doc_id":     docID,
			})
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "document deleted"})
}
