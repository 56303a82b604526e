package controller

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/clause"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/checkout"
	"fruitbox_backend/pkg/database"
	"fruitbox_backend/pkg/metrics"
	"fruitbox_backend/pkg/payment"
	"fruitbox_backend/pkg/subscription"
)

// HandleStripeWebhook verifica a assinatura, descarta eventos repetidos e despacha para o
// reconciliador ou para o ciclo de vida das assinaturas. Responder != 2xx faz o gateway reenviar.
func HandleStripeWebhook(c *fiber.Ctx) error {
	event, err := gateway.ParseWebhook(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "invalid_signature").Inc()
		log.Warn().Err(err).Msg("Rejected webhook")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Assinatura do webhook inválida",
			"code":  "invalid_signature",
		})
	}

	logger := log.With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()
	db := database.GetDB().WithContext(c.UserContext())

	record := model.WebhookEvent{EventID: event.ID, Type: event.Type}
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).Create(&record)
	if res.Error != nil {
		return respondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		logger.Info().Msg("Duplicate webhook event")
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "duplicate").Inc()
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	outcome, err := dispatchEvent(c.UserContext(), logger, event)
	if err != nil {
		// libera o evento para a próxima tentativa do gateway
		if delErr := db.Where("event_id = ?", event.ID).Delete(&model.WebhookEvent{}).Error; delErr != nil {
			logger.Error().Err(delErr).Msg("Could not release webhook event")
		}
		metrics.WebhookEventsTotal.WithLabelValues(event.Type, "error").Inc()
		logger.Error().Err(err).Msg("Webhook processing failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": errInternalError.Error(),
			"code":  "internal_error",
		})
	}

	metrics.WebhookEventsTotal.WithLabelValues(event.Type, outcome).Inc()
	logger.Info().Str("outcome", outcome).Msg("Webhook processed")
	return c.JSON(fiber.Map{"received": true})
}

func dispatchEvent(ctx context.Context, logger zerolog.Logger, event *payment.Event) (string, error) {
	switch event.Type {
	case payment.EventCheckoutCompleted, payment.EventCheckoutAsyncSucceeded:
		res, err := resolver.Resolve(ctx, checkout.Reference{SessionID: event.SessionID})
		if errors.Is(err, checkout.ErrPaymentNotConfirmed) {
			// pagamento assíncrono ainda pendente, virá outro evento
			return "pending", nil
		}
		if errors.Is(err, checkout.ErrInvalidSession) {
			logger.Warn().Str("session_id", event.SessionID).Msg("Webhook references invalid session")
			return "ignored", nil
		}
		if err != nil {
			return "", err
		}
		if res.Created {
			return "created", nil
		}
		return "existing", nil
	}

	target, ok := subscription.TargetForEvent(event)
	if !ok {
		return "ignored", nil
	}
	if event.SubscriptionID == "" {
		logger.Warn().Msg("Subscription event without subscription reference")
		return "ignored", nil
	}

	occurred := event.Created
	if occurred.IsZero() {
		occurred = time.Now()
	}
	outcome, err := subscriptions.ApplyGatewayEvent(ctx, subscription.GatewayEvent{
		SubscriptionRef: event.SubscriptionID,
		Target:          target,
		OccurredAt:      occurred,
	})
	if err != nil {
		return "", err
	}
	return string(outcome), nil
}
