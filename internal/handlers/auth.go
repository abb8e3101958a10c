package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/project-nexus/backend/internal/config"
	"github.com/project-nexus/backend/internal/middleware"
	"github.com/project-nexus/backend/internal/models"
	"github.com/project-nexus/backend/internal/services"
	"github.com/project-nexus/backend/pkg/logger"
	"github.com/project-nexus/backend/pkg/utils"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB      *gorm.DB
	Session config.SessionConfig
}

func NewAuthHandler(db *gorm.DB, session config.SessionConfig) *AuthHandler {
	return &AuthHandler{DB: db, Session: session}
}

type identityResponse struct {
	Authenticated bool            `json:"authenticated"`
	UserID        string          `json:"userId"`
	DisplayName   string          `json:"displayName"`
	Role          models.UserRole `json:"role"`
}

func identity(user *models.User) identityResponse {
	return identityResponse{
		Authenticated: true,
		UserID:        user.UserID,
		DisplayName:   user.DisplayName,
		Role:          user.Role,
	}
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     h.Session.CookieName,
		Value:    token,
		Expires:  time.Now().Add(utils.TokenLifetime()),
		HTTPOnly: true,
		Secure:   h.Session.CookieSecure,
		SameSite: "Lax",
	})
}

func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.Session.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.Session.CookieSecure,
		SameSite: "Lax",
	})
}

type registerRequest struct {
	UserID      string `json:"userId"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// Register creates a user account. The very first account ever registered
// becomes the bootstrap admin; everyone after that is a regular user.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "userId and password are required")
	}
	if len(req.UserID) > 100 {
		return utils.Error(c, fiber.StatusBadRequest, "userId is too long")
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.UserID
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		logger.Error("password_hash_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	var user models.User
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("user_id = ?", req.UserID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return services.ConflictError("user id is already registered")
		}

		var total int64
		if err := tx.Model(&models.User{}).Count(&total).Error; err != nil {
			return err
		}

		role := models.UserRoleUser
		if total == 0 {
			role = models.UserRoleAdmin
		}

		user = models.User{
			UserID:       req.UserID,
			PasswordHash: hash,
			DisplayName:  displayName,
			Role:         role,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return respondServiceError(c, err, "register_failed")
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		logger.Error("token_generation_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
	h.setSessionCookie(c, token)

	logger.Info("user_registered", map[string]interface{}{
		"user_id": user.UserID,
		"role":    string(user.Role),
	})

	return utils.Success(c, fiber.StatusCreated, identity(&user))
}

type loginRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.UserID == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "userId and password are required")
	}

	var user models.User
	if err := h.DB.First(&user, "user_id = ?", req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
		}
		logger.Error("login_lookup_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	if !utils.VerifyPassword(req.Password, user.PasswordHash) {
		logger.Warn("login_rejected", map[string]interface{}{
			"user_id": req.UserID,
			"ip":      c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		logger.Error("token_generation_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
	h.setSessionCookie(c, token)

	return utils.Success(c, fiber.StatusOK, identity(&user))
}

// Me reports the current identity. Role and display name come from the auth
// middleware, which re-reads the users table, so a promotion shows up here
// without a new login.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	return utils.Success(c, fiber.StatusOK, identityResponse{
		Authenticated: true,
		UserID:        actor.UserID,
		DisplayName:   actor.DisplayName,
		Role:          actor.Role,
	})
}

// Logout clears the session cookie. There is no server-side session row to
// destroy, so this always succeeds and repeating it is harmless.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.clearSessionCookie(c)
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "logged out"})
}

type changePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// ChangePassword updates the stored hash for a target user. Only the user
// themselves or an admin may do it.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	targetUserID := c.Params("userId")
	if targetUserID != actor.UserID && !actor.IsAdmin() {
		return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.NewPassword == "" {
		return utils.Error(c, fiber.StatusBadRequest, "newPassword is required")
	}

	var target models.User
	if err := h.DB.First(&target, "user_id = ?", targetUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		logger.Error("password_change_lookup_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("password_hash_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	err = h.DB.Model(&models.User{}).
		Where("user_id = ?", target.UserID).
		Update("password_hash", hash).Error
	if err != nil {
		logger.Error("password_change_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	logger.InfoWithUser(actor.UserID, "password_changed", map[string]interface{}{
		"target_user_id": target.UserID,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "password updated"})
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName"`
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, ok := middleware.GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return utils.Error(c, fiber.StatusBadRequest, "displayName is required")
	}

	err := h.DB.Model(&models.User{}).
		Where("user_id = ?", actor.UserID).
		Update("display_name", displayName).Error
	if err != nil {
		logger.Error("profile_update_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.Success(c, fiber.StatusOK, identityResponse{
		Authenticated: true,
		UserID:        actor.UserID,
		DisplayName:   displayName,
		Role:          actor.Role,
	})
}

type createUserRequest struct {
	UserID      string          `json:"userId"`
	Password    string          `json:"password"`
	DisplayName string          `json:"displayName"`
	Role        models.UserRole `json:"role"`
}

// CreateUser lets an admin provision an account with an explicit role.
func (h *AuthHandler) CreateUser(c *fiber.Ctx) error {
	actor, _ := middleware.GetAuthContext(c)

	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "userId and password are required")
	}

	role := req.Role
	if role == "" {
		role = models.UserRoleUser
	}
	if role != models.UserRoleUser && role != models.UserRoleAdmin {
		return utils.Error(c, fiber.StatusBadRequest, "invalid role")
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.UserID
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		logger.Error("password_hash_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}

	user := models.User{
		UserID:       req.UserID,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         role,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("user_id = ?", req.UserID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return services.ConflictError("user id is already registered")
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return respondServiceError(c, err, "admin_create_user_failed")
	}

	logger.InfoWithUser(actor.UserID, "user_created_by_admin", map[string]interface{}{
		"created_user_id": user.UserID,
		"role":            string(user.Role),
	})

	return utils.Success(c, fiber.StatusCreated, user)
}
