package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/database"
)

type RoleInput struct {
	Role string `json:"role"`
}

func AdminListUsers(c *fiber.Ctx) error {
	query := database.GetDB().Order("created_at DESC")
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []model.User
	if err := query.Find(&users).Error; err != nil {
		return respondError(c, err)
	}

	out := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		out = append(out, u.GetPublicProfile())
	}
	return c.JSON(out)
}

func AdminUpdateUserRole(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	input := new(RoleInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}
	if input.Role != model.RoleAdmin && input.Role != model.RoleCustomer {
		return respondValidation(c, "Papel inválido", []string{"Papel deve ser admin ou customer"})
	}
	if id == claims.UserID && input.Role != model.RoleAdmin {
		return respondValidation(c, "Papel inválido", []string{"Você não pode remover seu próprio acesso de administrador"})
	}

	db := database.GetDB()
	var user model.User
	if err := db.First(&user, id).Error; err != nil {
		return respondError(c, err)
	}
	if err := db.Model(&user).Update("role", input.Role).Error; err != nil {
		return respondError(c, err)
	}

	log.Info().Uint("user_id", user.ID).Str("role", input.Role).Uint("by", claims.UserID).Msg("User role changed")
	return c.JSON(user.GetPublicProfile())
}
