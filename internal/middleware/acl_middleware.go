package middleware

import (
	"github.com/gofiber/fiber/v2"

	"fruitbox_backend/internal/model"
)

// RequireRole libera a rota apenas para os papéis informados. Deve vir depois do AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *fiber.Ctx) error {
		claims := Claims(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Autenticação necessária",
				"code":  "unauthorized",
			})
		}
		if !allowed[claims.Role] {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Acesso restrito",
				"code":  "forbidden",
			})
		}
		return c.Next()
	}
}

func RequireAdmin() fiber.Handler {
	return RequireRole(model.RoleAdmin)
}
