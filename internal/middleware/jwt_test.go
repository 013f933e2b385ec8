package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals("user_id"),
			"role":    c.Locals("user_role"),
		})
	})
	return app
}

func TestJWTProtectedPopulatesIdentity(t *testing.T) {
	app := newProtectedApp()
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "42",
		"role": "Admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
	}
	decodeBody(t, resp, &body)
	require.Equal(t, uint(42), body.UserID)
	require.Equal(t, "admin", body.Role)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := newProtectedApp()

	cases := map[string]string{
		"missing header":  "",
		"wrong scheme":    "Basic abc",
		"empty token":     "Bearer ",
		"wrong secret":    "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "1"}),
		"expired":         "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(-time.Hour).Unix()}),
		"not a jwt value": "Bearer not-a-token",
		"no subject":      "Bearer " + signToken(t, testSecret, jwt.MapClaims{"role": "admin"}),
		"zero subject":    "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "0"}),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestNormalizeUserIDVariants(t *testing.T) {
	id, err := normalizeUserID(float64(7))
	require.NoError(t, err)
	require.Equal(t, uint(7), id)

	_, err = normalizeUserID(float64(-1))
	require.Error(t, err)

	_, err = normalizeUserID("abc")
	require.Error(t, err)

	require.Equal(t, "learner", normalizeRole([]interface{}{"", " Learner "}))
	require.Equal(t, RoleAdmin, normalizeRole([]interface{}{"learner", "ADMIN"}))
	require.Empty(t, normalizeRole(42))
}

func TestJWTProtectedRejectsUnexpectedAlgorithm(t *testing.T) {
	app := newProtectedApp()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedAcceptsQueryTokenOnUpgrade(t *testing.T) {
	app := newProtectedApp()
	token := signToken(t, testSecret, jwt.MapClaims{"sub": "9"})

	plain := httptest.NewRequest(http.MethodGet, "/whoami?access_token="+token, nil)
	resp, err := app.Test(plain)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	upgrade := httptest.NewRequest(http.MethodGet, "/whoami?access_token="+token, nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	resp, err = app.Test(upgrade)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
