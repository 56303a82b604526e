// Package payment define a porta do gateway de pagamento usada pelo checkout e pelo ciclo de vida das
// assinaturas. O gateway é a fonte de verdade sobre "o pagamento foi concluído?", nunca o cliente.
package payment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound      = errors.New("checkout session not found")
	ErrSubscriptionNotFound = errors.New("gateway subscription not found")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrUnavailable          = errors.New("payment gateway unavailable")
)

// Chaves de metadata gravadas na sessão de checkout e lidas de volta na reconciliação
const (
	MetaUserID            = "user_id"
	MetaPlanID            = "plan_id"
	MetaSelection         = "selection"
	MetaSavePaymentMethod = "save_payment_method"
	MetaProductID         = "product_id"
	MetaShippingAddress   = "shipping_address"
)

type Mode string

const (
	ModePayment      Mode = "payment"
	ModeSubscription Mode = "subscription"
)

// Status reportados pelo gateway que contam como pagamento confirmado
const (
	PaymentStatusPaid            = "paid"
	IntentStatusSucceeded        = "succeeded"
	IntentStatusRequiresCapture  = "requires_capture"
	EventCheckoutCompleted       = "checkout.session.completed"
	EventCheckoutAsyncSucceeded  = "checkout.session.async_payment_succeeded"
	EventInvoicePaid             = "invoice.paid"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusActive     = "active"
	SubscriptionStatusIncomplete = "incomplete"
)

type CheckoutLine struct {
	ProductID  uint
	Name       string
	UnitAmount int64 // centavos
	Quantity   int64
	Metadata   map[string]string
}

type CheckoutParams struct {
	Mode              Mode
	CustomerID        string
	CustomerEmail     string
	Currency          string
	Lines             []CheckoutLine
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
	SavePaymentMethod bool
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Session é o estado autoritativo de uma sessão de checkout
type Session struct {
	ID                  string
	Mode                Mode
	Status              string
	PaymentStatus       string
	PaymentIntentID     string
	PaymentIntentStatus string
	SubscriptionID      string
	CustomerID          string
	CustomerEmail       string
	PaymentMethodID     string
	AmountTotal         int64
	Currency            string
	Metadata            map[string]string
	LineItems           []LineItem
}

// Paid indica pagamento confirmado pelo gateway
func (s *Session) Paid() bool {
	if s.PaymentStatus == PaymentStatusPaid {
		return true
	}
	return s.PaymentIntentStatus == IntentStatusSucceeded || s.PaymentIntentStatus == IntentStatusRequiresCapture
}

type LineItem struct {
	ProductID   uint // 0 quando a linha não é um produto do catálogo (ex.: preço do plano)
	Description string
	Quantity    int64
	UnitAmount  int64
	AmountTotal int64
}

// Event é um evento de webhook já verificado e normalizado
type Event struct {
	ID             string
	Type           string
	Created        time.Time
	SessionID      string
	SubscriptionID string
	CustomerID     string
	Status         string
	Paused         bool
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*Session, error)

	CancelSubscription(ctx context.Context, subscriptionID string) error
	PauseSubscription(ctx context.Context, subscriptionID string) error
	ResumeSubscription(ctx context.Context, subscriptionID string) error

	CreateCustomer(ctx context.Context, email, name string) (string, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	ParseWebhook(payload []byte, signature string) (*Event, error)
}
