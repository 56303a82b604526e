package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeGateway implementa Gateway com o SDK da Stripe.
// Cada chamada passa por um circuit breaker; não há retry, a falha volta direto para o chamador.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	breaker       *gobreaker.CircuitBreaker[any]
}

type BreakerConfig struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func NewStripeGateway(secretKey, webhookSecret string, cfg BreakerConfig) *StripeGateway {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "stripe",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Erros 4xx são respostas válidas do gateway, não indisponibilidade
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Payment gateway circuit breaker state changed")
		},
	}

	return &StripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		breaker:       gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (g *StripeGateway) execute(fn func() (any, error)) (any, error) {
	res, err := g.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	return res, err
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(p.Mode)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx

	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	} else if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}

	for _, line := range p.Lines {
		productMeta := map[string]string{}
		if line.ProductID != 0 {
			productMeta[MetaProductID] = strconv.FormatUint(uint64(line.ProductID), 10)
		}
		for k, v := range line.Metadata {
			productMeta[k] = v
		}

		priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(strings.ToLower(p.Currency)),
			UnitAmount: stripe.Int64(line.UnitAmount),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:     stripe.String(line.Name),
				Metadata: productMeta,
			},
		}
		if p.Mode == ModeSubscription {
			priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String("week"),
			}
		}

		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: priceData,
			Quantity:  stripe.Int64(line.Quantity),
		})
	}

	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	if p.Mode == ModePayment && p.SavePaymentMethod {
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			SetupFutureUsage: stripe.String("off_session"),
		}
	}

	res, err := g.execute(func() (any, error) {
		return g.api.CheckoutSessions.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	s := res.(*stripe.CheckoutSession)
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("line_items.data.price.product")
	params.AddExpand("payment_intent")
	params.AddExpand("subscription")

	res, err := g.execute(func() (any, error) {
		return g.api.CheckoutSessions.Get(sessionID, params)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}

	return convertSession(res.(*stripe.CheckoutSession)), nil
}

func convertSession(s *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:            s.ID,
		Mode:          Mode(s.Mode),
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		Metadata:      s.Metadata,
	}

	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
		out.PaymentIntentStatus = string(s.PaymentIntent.Status)
		if s.PaymentIntent.PaymentMethod != nil {
			out.PaymentMethodID = s.PaymentIntent.PaymentMethod.ID
		}
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
		if out.PaymentMethodID == "" && s.Subscription.DefaultPaymentMethod != nil {
			out.PaymentMethodID = s.Subscription.DefaultPaymentMethod.ID
		}
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.CustomerDetails != nil {
		out.CustomerEmail = s.CustomerDetails.Email
	}

	if s.LineItems != nil {
		for _, li := range s.LineItems.Data {
			item := LineItem{
				Description: li.Description,
				Quantity:    li.Quantity,
				AmountTotal: li.AmountTotal,
			}
			if li.Price != nil {
				item.UnitAmount = li.Price.UnitAmount
				if li.Price.Product != nil {
					item.ProductID = parseID(li.Price.Product.Metadata[MetaProductID])
				}
			}
			out.LineItems = append(out.LineItems, item)
		}
	}
	return out
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	_, err := g.execute(func() (any, error) {
		return g.api.Subscriptions.Cancel(subscriptionID, params)
	})
	return g.subscriptionErr("cancel", err)
}

func (g *StripeGateway) PauseSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{
		PauseCollection: &stripe.SubscriptionPauseCollectionParams{
			Behavior: stripe.String("void"),
		},
	}
	params.Context = ctx

	_, err := g.execute(func() (any, error) {
		return g.api.Subscriptions.Update(subscriptionID, params)
	})
	return g.subscriptionErr("pause", err)
}

func (g *StripeGateway) ResumeSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	// pause_collection vazio remove a pausa
	params.AddExtra("pause_collection", "")

	_, err := g.execute(func() (any, error) {
		return g.api.Subscriptions.Update(subscriptionID, params)
	})
	return g.subscriptionErr("resume", err)
}

func (g *StripeGateway) subscriptionErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return ErrSubscriptionNotFound
	}
	return fmt.Errorf("%s subscription: %w", op, err)
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx

	res, err := g.execute(func() (any, error) {
		return g.api.Customers.New(params)
	})
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return res.(*stripe.Customer).ID, nil
}

// AttachPaymentMethod vincula o método ao cliente e o torna padrão para cobranças fora da sessão
func (g *StripeGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	attach := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	attach.Context = ctx

	if _, err := g.execute(func() (any, error) {
		return g.api.PaymentMethods.Attach(paymentMethodID, attach)
	}); err != nil {
		return fmt.Errorf("attach payment method: %w", err)
	}

	update := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	update.Context = ctx

	if _, err := g.execute(func() (any, error) {
		return g.api.Customers.Update(customerID, update)
	}); err != nil {
		return fmt.Errorf("set default payment method: %w", err)
	}
	return nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return decodeEvent(event)
}

type rawObject struct {
	ID              string          `json:"id"`
	Mode            string          `json:"mode"`
	Status          string          `json:"status"`
	Customer        json.RawMessage `json:"customer"`
	Subscription    json.RawMessage `json:"subscription"`
	PauseCollection json.RawMessage `json:"pause_collection"`
}

func decodeEvent(event stripe.Event) (*Event, error) {
	out := &Event{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0),
	}
	if event.Data == nil {
		return out, nil
	}

	var obj rawObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return nil, fmt.Errorf("decode %s: %w", out.Type, err)
	}
	out.CustomerID = expandableID(obj.Customer)

	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncSucceeded:
		out.SessionID = obj.ID
		out.SubscriptionID = expandableID(obj.Subscription)
	case EventInvoicePaid, EventInvoicePaymentFailed:
		out.SubscriptionID = expandableID(obj.Subscription)
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		out.SubscriptionID = obj.ID
		out.Status = obj.Status
		out.Paused = len(obj.PauseCollection) > 0 && string(obj.PauseCollection) != "null"
	}
	return out, nil
}

// expandableID aceita tanto "sub_123" quanto {"id": "sub_123", ...}
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}

func parseID(s string) uint {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func isNotFound(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}

func isClientError(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 && stripeErr.HTTPStatusCode != http.StatusTooManyRequests
	}
	return false
}
