package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/project-nexus/backend/internal/models"
)

func configureJWTForTest(t *testing.T, secret string, expirationHours int) {
	t.Helper()

	originalSecret := append([]byte(nil), jwtSecret...)
	originalExpiration := jwtExpirationHours

	t.Cleanup(func() {
		jwtSecret = originalSecret
		jwtExpirationHours = originalExpiration
	})

	ConfigureJWT(secret, expirationHours)
}

func TestConfigureJWT(t *testing.T) {
	t.Run("updates secret and expiration when valid values are provided", func(t *testing.T) {
		configureJWTForTest(t, "test-secret", 72)

		if got := string(jwtSecret); got != "test-secret" {
			t.Fatalf("expected jwt secret to be %q, got %q", "test-secret", got)
		}
		if jwtExpirationHours != 72 {
			t.Fatalf("expected jwt expiration to be %d, got %d", 72, jwtExpirationHours)
		}
	})

	t.Run("ignores empty secret and non-positive expiration", func(t *testing.T) {
		configureJWTForTest(t, "initial-secret", 24)

		ConfigureJWT("", 0)

		if got := string(jwtSecret); got != "initial-secret" {
			t.Fatalf("expected jwt secret to remain %q, got %q", "initial-secret", got)
		}
		if jwtExpirationHours != 24 {
			t.Fatalf("expected jwt expiration to remain %d, got %d", 24, jwtExpirationHours)
		}
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Run("generates and validates token for a user", func(t *testing.T) {
		configureJWTForTest(t, "roundtrip-secret", 1)

		user := &models.User{
			UserID: "tony.stark",
			Role:   models.UserRoleAdmin,
		}

		token, err := GenerateToken(user)
		if err != nil {
			t.Fatalf("expected token generation to succeed, got error: %v", err)
		}

		claims, err := ValidateToken(token)
		if err != nil {
			t.Fatalf("expected token validation to succeed, got error: %v", err)
		}

		if claims.UserID != user.UserID {
			t.Fatalf("expected claims userId %q, got %q", user.UserID, claims.UserID)
		}
		if claims.Role != user.Role {
			t.Fatalf("expected claims role %q, got %q", user.Role, claims.Role)
		}
		if claims.Subject != user.UserID {
			t.Fatalf("expected subject %q, got %q", user.UserID, claims.Subject)
		}
		if claims.ExpiresAt == nil || !claims.ExpiresAt.After(time.Now()) {
			t.Fatalf("expected token to have a future expiration, got %v", claims.ExpiresAt)
		}
	})

	t.Run("rejects expired token", func(t *testing.T) {
		configureJWTForTest(t, "expired-secret", 1)

		expiredClaims := Claims{
			UserID: "steve.rogers",
			Role:   models.UserRoleUser,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims)
		signed, err := token.SignedString(jwtSecret)
		if err != nil {
			t.Fatalf("failed signing expired token: %v", err)
		}

		if _, err := ValidateToken(signed); err == nil {
			t.Fatal("expected validation of expired token to fail")
		}
	})

	t.Run("rejects token signed with a different secret", func(t *testing.T) {
		configureJWTForTest(t, "secret-one", 1)

		user := &models.User{UserID: "tony.stark", Role: models.UserRoleUser}
		token, err := GenerateToken(user)
		if err != nil {
			t.Fatalf("token generation failed: %v", err)
		}

		ConfigureJWT("secret-two", 1)

		if _, err := ValidateToken(token); err == nil {
			t.Fatal("expected validation with a different secret to fail")
		}
	})

	t.Run("rejects malformed token", func(t *testing.T) {
		configureJWTForTest(t, "malformed-secret", 1)

		if _, err := ValidateToken("not.a.token"); err == nil {
			t.Fatal("expected validation of malformed token to fail")
		}
	})
}
