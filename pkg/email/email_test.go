package email

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/internal/testutil"
)

type captureSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func newTestService(t *testing.T) (*EmailService, *captureSender) {
	t.Helper()
	sender := &captureSender{}
	svc, err := NewEmailService(sender, "Fruitbox <contato@fruitbox.com.br>")
	require.NoError(t, err)
	return svc, sender
}

func TestFormatMoney(t *testing.T) {
	tests := map[string]string{
		"0":       "R$ 0,00",
		"4.5":     "R$ 4,50",
		"89.90":   "R$ 89,90",
		"1234.5":  "R$ 1.234,50",
		"1000000": "R$ 1.000.000,00",
		"-12.345": "-R$ 12,35",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestSendSubscriptionStartedEmail(t *testing.T) {
	svc, sender := newTestService(t)

	err := svc.SendSubscriptionStartedEmail(context.Background(), "ana@example.com", SubscriptionStartedData{
		Name:         "Ana",
		PlanName:     "Caixa Semanal",
		Price:        decimal.RequireFromString("89.90"),
		NextDelivery: time.Date(2025, 10, 20, 8, 0, 0, 0, time.UTC),
		Items:        []EmailItem{{Name: "Manga Palmer", Quantity: 2}},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, "subscription-started", msg.Tag)
	assert.Contains(t, msg.Subject, "Caixa Semanal")
	assert.Contains(t, msg.HTMLBody, "R$ 89,90")
	assert.Contains(t, msg.HTMLBody, "20/10/2025")
	assert.Contains(t, msg.HTMLBody, "2x Manga Palmer")
}

func TestSendPropagatesSenderError(t *testing.T) {
	svc, sender := newTestService(t)
	sender.err = ErrSendFailed

	err := svc.SendWelcomeEmail(context.Background(), "ana@example.com", "Ana")
	assert.True(t, errors.Is(err, ErrSendFailed))
}

func TestNotifierOrderCreated(t *testing.T) {
	db := testutil.NewDB(t)
	svc, sender := newTestService(t)
	user := testutil.CreateUser(t, db, "ana@example.com", model.RoleCustomer)
	apple := testutil.CreateProduct(t, db, "Maçã Fuji", model.CategoryNormal, 10)

	order := model.Order{
		UserID:                user.ID,
		Status:                model.OrderStatusPaid,
		StripePaymentIntentID: "sess_mail",
		Total:                 decimal.RequireFromString("13.50"),
		Items:                 []model.OrderItem{{ProductID: apple.ID, Quantity: 3, UnitPrice: decimal.RequireFromString("4.50")}},
	}
	require.NoError(t, db.Omit("User").Create(&order).Error)

	NewNotifier(db, svc).OrderCreated(context.Background(), order.ID)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTMLBody, "3x Maçã Fuji")
	assert.Contains(t, sender.sent[0].HTMLBody, "R$ 13,50")
}

func TestNotifierDisabled(t *testing.T) {
	db := testutil.NewDB(t)
	// sem serviço configurado não há envio nem pânico
	NewNotifier(db, nil).OrderCreated(context.Background(), 1)
	NewNotifier(db, nil).SubscriptionCancelled(context.Background(), 1)
}
