package controller

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/database"
	"fruitbox_backend/pkg/email"
	"fruitbox_backend/pkg/utils/jwt"
	"fruitbox_backend/pkg/utils/validation"
)

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileInput struct {
	Name    *string         `json:"name"`
	Phone   *string         `json:"phone"`
	Address json.RawMessage `json:"address"`
}

func Register(c *fiber.Ctx) error {
	input := new(RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if errs := validation.Registration(input.Email, input.Password, input.Name); len(errs) > 0 {
		return respondValidation(c, "Cadastro inválido", errs)
	}

	// E-mail já cadastrado
	var count int64
	if err := database.GetDB().Model(&model.User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		return respondError(c, err)
	}
	if count > 0 {
		return respondError(c, newAPIError(fiber.StatusConflict, "email_taken", "E-mail já cadastrado"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, err)
	}

	user := model.User{
		Email:    input.Email,
		Password: string(hashedPassword),
		Name:     strings.TrimSpace(input.Name),
		Phone:    input.Phone,
		Role:     model.RoleCustomer,
	}
	if err := database.GetDB().Create(&user).Error; err != nil {
		return respondError(c, err)
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return respondError(c, err)
	}

	if email.GlobalEmailService != nil {
		if err := email.GlobalEmailService.SendWelcomeEmail(c.UserContext(), user.Email, user.Name); err != nil {
			log.Error().Err(err).Uint("user_id", user.ID).Msg("Could not send welcome email")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Cadastro realizado com sucesso",
		"token":   token,
		"user":    user.GetPublicProfile(),
	})
}

func Login(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}

	invalid := newAPIError(fiber.StatusUnauthorized, "invalid_credentials", "E-mail ou senha inválidos")

	var user model.User
	err := database.GetDB().Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return respondError(c, invalid)
	}
	if err != nil {
		return respondError(c, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return respondError(c, invalid)
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user.GetPublicProfile(),
	})
}

// GetMe devolve o perfil do usuário autenticado
func GetMe(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"user": user.GetPublicProfile()})
}

func UpdateProfile(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	input := new(ProfileInput)
	if err := c.BodyParser(input); err != nil {
		return respondError(c, errInvalidInput)
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return respondValidation(c, "Perfil inválido", []string{"Informe seu nome"})
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if len(input.Address) > 0 {
		if !json.Valid(input.Address) {
			return respondValidation(c, "Perfil inválido", []string{"Endereço inválido"})
		}
		updates["address"] = datatypes.JSON(input.Address)
	}

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		return respondError(c, err)
	}
	if len(updates) > 0 {
		if err := database.GetDB().Model(&user).Updates(updates).Error; err != nil {
			return respondError(c, err)
		}
	}

	return c.JSON(fiber.Map{"user": user.GetPublicProfile()})
}
