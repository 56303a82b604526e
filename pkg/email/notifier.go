package email

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fruitbox_backend/internal/model"
)

// Notifier carrega os registros e envia as confirmações ao cliente.
// Falhas são só registradas: o e-mail nunca desfaz uma operação concluída.
type Notifier struct {
	db      *gorm.DB
	service *EmailService
}

func NewNotifier(db *gorm.DB, service *EmailService) *Notifier {
	return &Notifier{db: db, service: service}
}

func (n *Notifier) OrderCreated(ctx context.Context, orderID uint) {
	if n.service == nil {
		return
	}

	var order model.Order
	err := n.db.WithContext(ctx).Preload("User").Preload("Items.Product").First(&order, orderID).Error
	if err != nil {
		log.Error().Err(err).Uint("order_id", orderID).Msg("Could not load order for email")
		return
	}

	data := OrderConfirmedData{Name: order.User.Name, OrderID: order.ID, Total: order.Total}
	for _, it := range order.Items {
		data.Items = append(data.Items, EmailItem{
			Name:     it.Product.Name,
			Quantity: it.Quantity,
			Subtotal: it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}

	if err := n.service.SendOrderConfirmedEmail(ctx, order.User.Email, data); err != nil {
		log.Error().Err(err).Uint("order_id", orderID).Msg("Could not send order email")
	}
}

func (n *Notifier) SubscriptionCreated(ctx context.Context, subscriptionID uint) {
	if n.service == nil {
		return
	}

	sub, err := n.loadSubscription(ctx, subscriptionID)
	if err != nil {
		log.Error().Err(err).Uint("subscription_id", subscriptionID).Msg("Could not load subscription for email")
		return
	}

	data := SubscriptionStartedData{
		Name:         sub.User.Name,
		PlanName:     sub.Plan.Name,
		Price:        sub.Plan.Price,
		NextDelivery: sub.NextDeliveryDate,
	}
	for _, it := range sub.Items {
		data.Items = append(data.Items, EmailItem{Name: it.Product.Name, Quantity: it.Quantity})
	}

	if err := n.service.SendSubscriptionStartedEmail(ctx, sub.User.Email, data); err != nil {
		log.Error().Err(err).Uint("subscription_id", subscriptionID).Msg("Could not send subscription email")
	}
}

func (n *Notifier) SubscriptionCancelled(ctx context.Context, subscriptionID uint) {
	if n.service == nil {
		return
	}

	sub, err := n.loadSubscription(ctx, subscriptionID)
	if err != nil {
		log.Error().Err(err).Uint("subscription_id", subscriptionID).Msg("Could not load subscription for email")
		return
	}

	data := SubscriptionCancelledData{Name: sub.User.Name, PlanName: sub.Plan.Name, CancelledAt: sub.StatusChangedAt}
	if sub.CancelledAt != nil {
		data.CancelledAt = *sub.CancelledAt
	}
	if err := n.service.SendSubscriptionCancelledEmail(ctx, sub.User.Email, data); err != nil {
		log.Error().Err(err).Uint("subscription_id", subscriptionID).Msg("Could not send cancellation email")
	}
}

func (n *Notifier) loadSubscription(ctx context.Context, id uint) (*model.Subscription, error) {
	var sub model.Subscription
	err := n.db.WithContext(ctx).
		Preload("User").
		Preload("Plan").
		Preload("Items.Product").
		First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
