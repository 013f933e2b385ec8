package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newRoleApp(userID interface{}, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != nil {
			c.Locals("user_id", userID)
		}
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Use(RequireRole(RoleAdmin))
	app.Get("/admin", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name   string
		userID interface{}
		role   string
		want   int
	}{
		{name: "admin", userID: uint(1), role: "admin", want: fiber.StatusOK},
		{name: "admin mixed case", userID: uint(1), role: " Admin ", want: fiber.StatusOK},
		{name: "learner", userID: uint(2), role: RoleLearner, want: fiber.StatusForbidden},
		{name: "no role", userID: uint(2), want: fiber.StatusForbidden},
		{name: "anonymous", role: "admin", want: fiber.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newRoleApp(tc.userID, tc.role)
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
			require.NoError(t, err)
			require.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
