package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codesnap-api/internal/utils"
)

// Roles carried in the JWT role claim.
const (
	RoleAdmin   = "admin"
	RoleLearner = "learner"
)

// RequireRole lets the request through only when user_role matches one of
// roles. It must run after JWTProtected.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals("user_id").(uint); !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
		}

		role, _ := c.Locals("user_role").(string)
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(role))]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
