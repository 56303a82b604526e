package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"fruitbox_backend/pkg/checkout"
	"fruitbox_backend/pkg/selection"
	"fruitbox_backend/pkg/subscription"
)

// apiError é um erro de requisição com status e código próprios
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string { return e.message }

func newAPIError(status int, code, message string) error {
	return &apiError{status: status, code: code, message: message}
}

var (
	errInvalidInput  = newAPIError(fiber.StatusBadRequest, "invalid_input", "Dados inválidos")
	errInvalidID     = newAPIError(fiber.StatusBadRequest, "invalid_id", "Identificador inválido")
	errNotFound      = newAPIError(fiber.StatusNotFound, "not_found", "Registro não encontrado")
	errPlanNotFound  = newAPIError(fiber.StatusNotFound, "plan_not_found", "Plano não encontrado")
	errUnauthorized  = newAPIError(fiber.StatusUnauthorized, "unauthorized", "Autenticação necessária")
	errForbidden     = newAPIError(fiber.StatusForbidden, "forbidden", "Acesso restrito")
	errStorageOff    = newAPIError(fiber.StatusServiceUnavailable, "storage_disabled", "Upload de imagens indisponível")
	errInternalError = newAPIError(fiber.StatusInternalServerError, "internal_error", "Erro interno, tente novamente")
)

type mappedError struct {
	err    error
	status int
	code   string
}

// Ordem importa: o primeiro errors.Is que casar define a resposta
var errorTable = []mappedError{
	{checkout.ErrInvalidSession, fiber.StatusNotFound, "invalid_session"},
	{checkout.ErrPaymentNotConfirmed, fiber.StatusPaymentRequired, "payment_not_confirmed"},
	{checkout.ErrPlanNotFound, fiber.StatusNotFound, "plan_not_found"},
	{checkout.ErrGateway, fiber.StatusBadGateway, "gateway_error"},
	{subscription.ErrNotFound, fiber.StatusNotFound, "subscription_not_found"},
	{subscription.ErrForbidden, fiber.StatusForbidden, "forbidden"},
	{subscription.ErrAlreadyCancelled, fiber.StatusConflict, "already_cancelled"},
	{subscription.ErrAlreadyPaused, fiber.StatusConflict, "already_paused"},
	{subscription.ErrNotPaused, fiber.StatusConflict, "not_paused"},
	{subscription.ErrInvalidTransition, fiber.StatusConflict, "invalid_transition"},
	{subscription.ErrConflict, fiber.StatusConflict, "conflict"},
	{subscription.ErrGateway, fiber.StatusBadGateway, "gateway_error"},
	{selection.ErrNotFound, fiber.StatusNotFound, "selection_not_found"},
}

// respondError traduz o erro para {"error", "code"} sem vazar detalhes internos
func respondError(c *fiber.Ctx, err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.status).JSON(fiber.Map{"error": apiErr.message, "code": apiErr.code})
	}

	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			if m.status >= fiber.StatusInternalServerError {
				log.Error().Err(err).Str("path", c.Path()).Msg("Upstream failure")
			}
			return c.Status(m.status).JSON(fiber.Map{"error": m.err.Error(), "code": m.code})
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return respondError(c, errNotFound)
	}

	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("Unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": errInternalError.Error(),
		"code":  "internal_error",
	})
}

// respondValidation responde 422 com uma mensagem por problema encontrado
func respondValidation(c *fiber.Ctx, message string, errs []string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error":  message,
		"code":   "validation_failed",
		"errors": errs,
	})
}
