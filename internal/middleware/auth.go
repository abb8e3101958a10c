package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/project-nexus/backend/internal/models"
	"github.com/project-nexus/backend/pkg/logger"
	"github.com/project-nexus/backend/pkg/utils"
	"gorm.io/gorm"
)

const authContextKey = "authContext"

type AuthMiddleware struct {
	DB         *gorm.DB
	CookieName string
}

func NewAuthMiddleware(db *gorm.DB, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{DB: db, CookieName: cookieName}
}

func CORS(origin string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     origin,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
	})
}

func (a *AuthMiddleware) token(c *fiber.Ctx) string {
	if cookie := c.Cookies(a.CookieName); cookie != "" {
		return cookie
	}
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if token == authHeader {
		return ""
	}
	return token
}

// RequireAuth resolves the session into an AuthContext. The userId claim is
// trusted for the session lifetime, but role and display name are re-read
// from the users table so a promotion applies without re-login.
func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	token := a.token(c)
	if token == "" {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}

	claims, err := utils.ValidateToken(token)
	if err != nil {
		logger.Warn("session_validation_failed", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired session")
	}

	var user models.User
	if err := a.DB.First(&user, "user_id = ?", claims.UserID).Error; err != nil {
		logger.Warn("session_user_not_found", map[string]interface{}{
			"ip":      c.IP(),
			"path":    c.Path(),
			"user_id": claims.UserID,
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired session")
	}

	c.Locals(authContextKey, models.AuthContext{
		UserID:      user.UserID,
		Role:        user.Role,
		DisplayName: user.DisplayName,
	})
	return c.Next()
}

func AdminOnly(c *fiber.Ctx) error {
	actor, ok := GetAuthContext(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "authentication required")
	}
	if !actor.IsAdmin() {
		return utils.Error(c, fiber.StatusForbidden, "admin access required")
	}
	return c.Next()
}

func GetAuthContext(c *fiber.Ctx) (models.AuthContext, bool) {
	value := c.Locals(authContextKey)
	if value == nil {
		return models.AuthContext{}, false
	}
	actor, ok := value.(models.AuthContext)
	return actor, ok
}
