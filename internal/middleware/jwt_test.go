package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-gradebook/internal/middleware"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTProtectedSetsIdentity(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.JWTProtected("secret"))
	app.Get("/", func(c *fiber.Ctx) error {
		require.Equal(t, uint(42), middleware.UserID(c))
		require.Equal(t, middleware.RoleTeacher, middleware.UserRole(c))
		return c.SendStatus(fiber.StatusOK)
	})

	token := signToken(t, "secret", jwt.MapClaims{
		"sub":  "42",
		"role": "Teacher",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.JWTProtected("secret"))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	cases := map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"no subject":   "Bearer " + signToken(t, "secret", jwt.MapClaims{"role": "teacher"}),
		"bad subject":  "Bearer " + signToken(t, "secret", jwt.MapClaims{"sub": "ada"}),
		"wrong secret": "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": "1"}),
		"expired":      "Bearer " + signToken(t, "secret", jwt.MapClaims{"sub": "1", "exp": time.Now().Add(-time.Hour).Unix()}),
	}

	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err, name)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, name)
	}
}

func TestJWTProtectedFeedsRoleGuard(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.JWTProtected("secret"))
	app.Get("/grade", middleware.RequireStaff(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for role, want := range map[string]int{"admin": fiber.StatusNoContent, "student": fiber.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/grade", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", jwt.MapClaims{"sub": "7", "roles": []string{role}}))
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, want, resp.StatusCode, role)
	}
}
