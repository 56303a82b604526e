package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/utils/jwt"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthMiddleware(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": Claims(c).UserID})
	})
	app.Get("/admin", AuthMiddleware(), RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func request(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAuthMiddleware(t *testing.T) {
	jwt.Configure("middleware-secret", time.Hour)
	app := newApp()

	customer, err := jwt.GenerateToken(1, "ana@example.com", model.RoleCustomer)
	require.NoError(t, err)
	admin, err := jwt.GenerateToken(2, "root@example.com", model.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, request(t, app, "/me", ""))
	assert.Equal(t, fiber.StatusUnauthorized, request(t, app, "/me", "garbage"))
	assert.Equal(t, fiber.StatusOK, request(t, app, "/me", customer))
	assert.Equal(t, fiber.StatusForbidden, request(t, app, "/admin", customer))
	assert.Equal(t, fiber.StatusNoContent, request(t, app, "/admin", admin))
}
