package controller

import (
	"github.com/gofiber/fiber/v2"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/database"
	"fruitbox_backend/pkg/subscription"
	"fruitbox_backend/pkg/utils/jwt"
)

var subscriptions *subscription.Manager

func InitSubscriptionController(m *subscription.Manager) {
	subscriptions = m
}

func actorFrom(claims *jwt.Claims) subscription.Actor {
	return subscription.Actor{UserID: claims.UserID, Role: claims.Role}
}

func GetMySubscriptions(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var subs []model.Subscription
	err = database.GetDB().
		Where("user_id = ?", claims.UserID).
		Preload("Plan").
		Preload("Items.Product").
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(subs)
}

func GetSubscription(c *fiber.Ctx) error {
	claims, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var sub model.Subscription
	err = database.GetDB().Preload("Plan").Preload("Items.Product").First(&sub, id).Error
	if err != nil {
		return respondError(c, subscription.ErrNotFound)
	}
	if sub.UserID != claims.UserID && claims.Role != model.RoleAdmin {
		return respondError(c, subscription.ErrForbidden)
	}
	return c.JSON(sub)
}

type lifecycleOp func(m *subscription.Manager, c *fiber.Ctx, id uint, actor subscription.Actor) (*model.Subscription, error)

func lifecycle(op lifecycleOp, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := currentUser(c)
		if err != nil {
			return respondError(c, err)
		}
		id, err := paramID(c, "id")
		if err != nil {
			return respondError(c, err)
		}

		sub, err := op(subscriptions, c, id, actorFrom(claims))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"message":      message,
			"subscription": sub,
		})
	}
}

var (
	CancelSubscription = lifecycle(func(m *subscription.Manager, c *fiber.Ctx, id uint, a subscription.Actor) (*model.Subscription, error) {
		return m.Cancel(c.UserContext(), id, a)
	}, "Assinatura cancelada")

	PauseSubscription = lifecycle(func(m *subscription.Manager, c *fiber.Ctx, id uint, a subscription.Actor) (*model.Subscription, error) {
		return m.Pause(c.UserContext(), id, a)
	}, "Assinatura pausada")

	ResumeSubscription = lifecycle(func(m *subscription.Manager, c *fiber.Ctx, id uint, a subscription.Actor) (*model.Subscription, error) {
		return m.Resume(c.UserContext(), id, a)
	}, "Assinatura reativada")
)

// AdminListSubscriptions aceita ?status= e ?needs_review=true
func AdminListSubscriptions(c *fiber.Ctx) error {
	query := database.GetDB().Preload("Plan").Preload("User").Order("created_at DESC")

	if status := c.Query("status"); status != "" {
		if !subscription.Status(status).Valid() {
			return respondError(c, errInvalidInput)
		}
		query = query.Where("status = ?", status)
	}
	if c.QueryBool("needs_review") {
		query = query.Where("needs_review = ?", true)
	}

	var subs []model.Subscription
	if err := query.Find(&subs).Error; err != nil {
		return respondError(c, err)
	}

	out := make([]fiber.Map, 0, len(subs))
	for _, s := range subs {
		out = append(out, fiber.Map{
			"subscription": s,
			"user":         s.User.GetPublicProfile(),
		})
	}
	return c.JSON(out)
}
