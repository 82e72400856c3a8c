package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"marketapi/internal/auth"
)

const (
	// UserIDLocalKey holds the authenticated user id (the token subject).
	UserIDLocalKey = "user_id"
	// RoleLocalKey holds the caller's role. After RequireRole it is the effective role.
	RoleLocalKey = "role"
)

// TokenParser verifies bearer tokens. *auth.Maker implements it.
type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// RoleResolver resolves the role that governs access. Stored roles win over token claims.
type RoleResolver interface {
	EffectiveRole(ctx context.Context, userID, claimRole string) (string, error)
}

// Auth requires "Authorization: Bearer <jwt>" and stores the subject and role claim in locals.
func Auth(tokens TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := tokens.ParseToken(strings.TrimSpace(token))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(UserIDLocalKey, claims.Subject)
		c.Locals(RoleLocalKey, claims.Role)
		return c.Next()
	}
}

// RequireRole lets the request through only when the caller's effective role is role.
// It must run after Auth.
func RequireRole(roles RoleResolver, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid := UserID(c)
		if uid == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		claimRole, _ := c.Locals(RoleLocalKey).(string)

		effective, err := roles.EffectiveRole(c.UserContext(), uid, claimRole)
		if err != nil {
			return err
		}
		if effective != role {
			return fiber.NewError(fiber.StatusForbidden, "insufficient role")
		}
		c.Locals(RoleLocalKey, effective)
		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" before Auth ran.
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals(UserIDLocalKey).(string)
	return uid
}
