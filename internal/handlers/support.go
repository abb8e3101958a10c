package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/project-nexus/backend/internal/middleware"
	"github.com/project-nexus/backend/internal/models"
	"github.com/project-nexus/backend/pkg/logger"
	"github.com/project-nexus/backend/pkg/utils"
	"gorm.io/gorm"
)

// SupportHandler handles the small support inbox: any user can write to it,
// admins see everything, everyone else sees only their own messages.
type SupportHandler struct {
	DB *gorm.DB
}

func NewSupportHandler(db *gorm.DB) *SupportHandler {
	return &SupportHandler{DB: db}
}

type supportMessageRow struct {
	models.SupportMessage
	DisplayName string `gorm:"column:sender_display_name"`
}

func (h *SupportHandler) List(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	page := utils.ParsePagination(c)

	countQuery := h.DB.WithContext(c.Context()).Model(&models.SupportMessage{})
	query := h.DB.WithContext(c.Context()).
		Table("support_messages").
		Select("support_messages.*, users.display_name AS sender_display_name").
		Joins("LEFT JOIN users ON users.user_id = support_messages.sender_user_id").
		Order("support_messages.created_at DESC")

	if !actor.IsAdmin() {
		countQuery = countQuery.Where("sender_user_id = ?", actor.UserID)
		query = query.Where("support_messages.sender_user_id = ?", actor.UserID)
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		logger.Error("support_list_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	var rows []supportMessageRow
	if err := utils.ApplyPagination(query, page).Scan(&rows).Error; err != nil {
		logger.Error("support_list_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	messages := make([]models.SupportMessage, 0, len(rows))
	for _, row := range rows {
		m := row.SupportMessage
		m.SenderDisplayName = row.DisplayName
		if m.SenderDisplayName == "" {
			m.SenderDisplayName = m.SenderUserID
		}
		messages = append(messages, m)
	}

	return utils.Paginated(c, messages, page.Page, page.Limit, total)
}

type createSupportMessageRequest struct {
	MessageText string `json:"messageText"`
}

func (h *SupportHandler) Create(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	var req createSupportMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.MessageText) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "messageText is required")
	}

	message := models.SupportMessage{
		SenderUserID: actor.UserID,
		MessageText:  req.MessageText,
	}
	if err := h.DB.WithContext(c.Context()).Create(&message).Error; err != nil {
		logger.Error("support_create_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	message.SenderDisplayName = actor.DisplayName

	return utils.Success(c, fiber.StatusCreated, message)
}

// MarkRead is an admin action; regular users have no unread state to manage.
func (h *SupportHandler) MarkRead(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}
	if !actor.IsAdmin() {
		return utils.Error(c, fiber.StatusForbidden, "admin access required")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid message id")
	}

	res := h.DB.WithContext(c.Context()).Model(&models.SupportMessage{}).
		Where("id = ?", id).
		Update("is_read", true)
	if res.Error != nil {
		logger.Error("support_mark_read_failed", res.Error, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
	if res.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "message not found")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "marked as read"})
}
