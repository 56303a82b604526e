package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"fruitbox_backend/pkg/utils/jwt"
)

// AuthMiddleware valida o Bearer token e coloca as claims em c.Locals("user")
func AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Autenticação necessária",
				"code":  "unauthorized",
			})
		}

		claims, err := jwt.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Sessão inválida ou expirada",
				"code":  "unauthorized",
			})
		}

		c.Locals("user", claims)
		return c.Next()
	}
}

// Claims devolve o usuário autenticado; nil fora de rotas protegidas
func Claims(c *fiber.Ctx) *jwt.Claims {
	claims, _ := c.Locals("user").(*jwt.Claims)
	return claims
}
