// Package checkout materializa pedidos e assinaturas a partir de sessões de pagamento confirmadas.
//
// O webhook do gateway e a página de sucesso disputam a mesma materialização. A consulta prévia evita
// trabalho repetido e o índice único da referência de pagamento, com INSERT ... ON CONFLICT DO NOTHING
// dentro de uma transação, garante que no máximo um registro exista por sessão.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/customization"
	"fruitbox_backend/pkg/delivery"
	"fruitbox_backend/pkg/metrics"
	"fruitbox_backend/pkg/payment"
	"fruitbox_backend/pkg/subscription"
)

var (
	ErrInvalidSession      = errors.New("Sessão de pagamento inválida")
	ErrPaymentNotConfirmed = errors.New("Pagamento não confirmado")
	ErrPlanNotFound        = errors.New("Plano não encontrado")
	ErrGateway             = errors.New("Não foi possível consultar o pagamento, tente novamente")
)

type Kind string

const (
	KindOrder        Kind = "order"
	KindSubscription Kind = "subscription"
)

// Reference identifica a sessão a reconciliar. PlanID é opcional e só serve de conferência:
// o plano autoritativo vem da metadata da sessão.
type Reference struct {
	SessionID string
	PlanID    uint
}

type Result struct {
	Kind    Kind `json:"kind"`
	ID      uint `json:"id"`
	Created bool `json:"created"`
}

// Notifier recebe os registros recém-criados (e-mails de confirmação etc.)
type Notifier interface {
	OrderCreated(ctx context.Context, orderID uint)
	SubscriptionCreated(ctx context.Context, subscriptionID uint)
}

type Resolver struct {
	db       *gorm.DB
	gateway  payment.Gateway
	location *time.Location
	now      func() time.Time
	notifier Notifier
}

type Option func(*Resolver)

func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) { r.location = loc }
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(r *Resolver) { r.notifier = n }
}

func NewResolver(db *gorm.DB, gateway payment.Gateway, opts ...Option) *Resolver {
	r := &Resolver{
		db:       db,
		gateway:  gateway,
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve garante que exista exatamente um pedido ou assinatura para a sessão informada.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) (*Result, error) {
	sessionID := strings.TrimSpace(ref.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	existing, err := r.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.ReconciliationsTotal.WithLabelValues(string(existing.Kind), "existing").Inc()
		return existing, nil
	}

	sess, err := r.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			metrics.ReconciliationsTotal.WithLabelValues("unknown", "invalid_session").Inc()
			return nil, ErrInvalidSession
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("Could not fetch checkout session")
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	if !sess.Paid() {
		log.Info().
			Str("session_id", sessionID).
			Str("payment_status", sess.PaymentStatus).
			Str("intent_status", sess.PaymentIntentStatus).
			Msg("Checkout session not paid, nothing materialized")
		metrics.ReconciliationsTotal.WithLabelValues(string(sess.Mode), "not_confirmed").Inc()
		return nil, ErrPaymentNotConfirmed
	}

	var res *Result
	switch sess.Mode {
	case payment.ModePayment:
		res, err = r.materializeOrder(ctx, sess)
	case payment.ModeSubscription:
		res, err = r.materializeSubscription(ctx, sess, ref.PlanID)
	default:
		log.Warn().Str("session_id", sessionID).Str("mode", string(sess.Mode)).Msg("Unsupported checkout mode")
		return nil, ErrInvalidSession
	}
	if err != nil {
		metrics.ReconciliationsTotal.WithLabelValues(string(sess.Mode), "error").Inc()
		return nil, err
	}

	outcome := "existing"
	if res.Created {
		outcome = "created"
	}
	metrics.ReconciliationsTotal.WithLabelValues(string(res.Kind), outcome).Inc()
	return res, nil
}

// lookup procura um registro já materializado para a sessão (inclusive excluídos logicamente,
// porque o índice único também os considera). Cada consulta parte de uma sessão nova.
func (r *Resolver) lookup(ctx context.Context, sessionID string) (*Result, error) {
	db := r.db.WithContext(ctx).Unscoped().Session(&gorm.Session{})

	var order model.Order
	res := db.Select("id").Where("stripe_payment_intent_id = ?", sessionID).Limit(1).Find(&order)
	if res.Error != nil {
		return nil, fmt.Errorf("lookup order: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return &Result{Kind: KindOrder, ID: order.ID}, nil
	}

	var sub model.Subscription
	res = db.Select("id").Where("stripe_checkout_session_id = ?", sessionID).Limit(1).Find(&sub)
	if res.Error != nil {
		return nil, fmt.Errorf("lookup subscription: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return &Result{Kind: KindSubscription, ID: sub.ID}, nil
	}
	return nil, nil
}

func (r *Resolver) materializeOrder(ctx context.Context, sess *payment.Session) (*Result, error) {
	userID := parseUint(sess.Metadata[payment.MetaUserID])
	if userID == 0 {
		log.Error().Str("session_id", sess.ID).Msg("Checkout session without user metadata")
		return nil, ErrInvalidSession
	}

	order := model.Order{
		UserID:                userID,
		Status:                model.OrderStatusPaid,
		StripePaymentIntentID: sess.ID,
		Total:                 decimal.New(sess.AmountTotal, -2),
		Currency:              strings.ToUpper(sess.Currency),
	}
	if addr := sess.Metadata[payment.MetaShippingAddress]; addr != "" {
		order.ShippingAddress = datatypes.JSON(addr)
	}

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "stripe_payment_intent_id"}}, DoNothing: true}).
			Create(&order)
		if res.Error != nil {
			return fmt.Errorf("insert order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true

		for _, li := range sess.LineItems {
			product, ok, err := r.findProduct(tx, sess.ID, li.ProductID, int(li.Quantity))
			if err != nil {
				return err
			}
			if !ok {
				order.FlagForReview(fmt.Sprintf("Item pago não materializado: produto %d (%q), quantidade %d", li.ProductID, li.Description, li.Quantity))
				continue
			}

			item := model.OrderItem{
				OrderID:   order.ID,
				ProductID: product.ID,
				Quantity:  int(li.Quantity),
				UnitPrice: decimal.New(li.UnitAmount, -2),
			}
			if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			if err := r.decrementStock(tx, sess.ID, product.ID, int(li.Quantity)); err != nil {
				return err
			}
		}

		if order.NeedsReview {
			return tx.Model(&order).Updates(map[string]interface{}{
				"needs_review": true,
				"review_note":  order.ReviewNote,
			}).Error
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sess.ID).Msg("Order materialization failed")
		return nil, err
	}

	if !created {
		return r.existing(ctx, sess.ID)
	}

	log.Info().
		Str("session_id", sess.ID).
		Uint("order_id", order.ID).
		Uint("user_id", userID).
		Bool("needs_review", order.NeedsReview).
		Msg("Order materialized")

	r.savePaymentMethod(ctx, userID, sess)
	if r.notifier != nil {
		r.notifier.OrderCreated(ctx, order.ID)
	}
	return &Result{Kind: KindOrder, ID: order.ID, Created: true}, nil
}

func (r *Resolver) materializeSubscription(ctx context.Context, sess *payment.Session, requestedPlanID uint) (*Result, error) {
	userID := parseUint(sess.Metadata[payment.MetaUserID])
	planID := parseUint(sess.Metadata[payment.MetaPlanID])
	if planID == 0 {
		planID = requestedPlanID
	} else if requestedPlanID != 0 && requestedPlanID != planID {
		log.Warn().
			Str("session_id", sess.ID).
			Uint("requested_plan_id", requestedPlanID).
			Uint("session_plan_id", planID).
			Msg("Requested plan differs from checkout session, using session metadata")
	}
	if userID == 0 || planID == 0 {
		log.Error().Str("session_id", sess.ID).Msg("Checkout session without user or plan metadata")
		return nil, ErrInvalidSession
	}

	plan, err := model.LoadPlan(r.db.WithContext(ctx), planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("load plan: %w", err)
	}

	selection, err := DecodeSelection(sess.Metadata[payment.MetaSelection])
	if err != nil {
		// A sessão já foi paga; a assinatura é criada e marcada para conferência manual
		log.Error().Err(err).Str("session_id", sess.ID).Msg("Could not decode selection metadata")
	}

	now := r.now()
	sessionID := sess.ID
	sub := model.Subscription{
		UserID:                  userID,
		PlanID:                  plan.ID,
		Status:                  string(subscription.StatusActive),
		StartDate:               now,
		NextDeliveryDate:        delivery.NextDelivery(now, r.location),
		StripeCheckoutSessionID: &sessionID,
		StatusChangedAt:         now,
		StatusSource:            subscription.SourceCheckout,
	}
	if sess.SubscriptionID != "" {
		gatewayRef := sess.SubscriptionID
		sub.StripeSubscriptionID = &gatewayRef
	}
	if err != nil {
		sub.FlagForReview("Metadata de personalização ilegível")
	}

	created := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "stripe_checkout_session_id"}}, DoNothing: true}).
			Create(&sub)
		if res.Error != nil {
			return fmt.Errorf("insert subscription: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true

		var chosen []customization.Item
		for _, sel := range selection {
			product, ok, err := r.findProduct(tx, sess.ID, sel.ProductID, sel.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				sub.FlagForReview(fmt.Sprintf("Item escolhido não materializado: produto %d, quantidade %d", sel.ProductID, sel.Quantity))
				continue
			}

			chosen = append(chosen, customization.Item{ProductID: product.ID, Category: product.Category, Quantity: sel.Quantity})
			item := model.SubscriptionItem{SubscriptionID: sub.ID, ProductID: product.ID, Quantity: sel.Quantity}
			if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
				return fmt.Errorf("insert subscription item: %w", err)
			}
			if err := r.decrementStock(tx, sess.ID, product.ID, sel.Quantity); err != nil {
				return err
			}
		}

		// Conferência autoritativa da personalização: o pagamento já foi feito, então a violação
		// não desfaz a assinatura, apenas a marca para revisão
		rules := plan.CustomizationRules()
		check := customization.Validate(rules, chosen)
		problems := append(check.Errors, customization.Uncovered(rules, chosen)...)
		if len(problems) > 0 {
			log.Warn().
				Str("session_id", sess.ID).
				Strs("violations", problems).
				Msg("Materialized selection violates plan rules")
			sub.FlagForReview("Personalização fora das regras do plano: " + strings.Join(problems, "; "))
		}

		for _, fixed := range plan.FixedItems {
			if _, ok, err := r.findProduct(tx, sess.ID, fixed.ProductID, fixed.Quantity); err != nil {
				return err
			} else if !ok {
				sub.FlagForReview(fmt.Sprintf("Item fixo indisponível: produto %d", fixed.ProductID))
				continue
			}
			if err := r.decrementStock(tx, sess.ID, fixed.ProductID, fixed.Quantity); err != nil {
				return err
			}
		}

		if sub.NeedsReview {
			return tx.Model(&sub).Updates(map[string]interface{}{
				"needs_review": true,
				"review_note":  sub.ReviewNote,
			}).Error
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sess.ID).Msg("Subscription materialization failed")
		return nil, err
	}

	if !created {
		return r.existing(ctx, sess.ID)
	}

	log.Info().
		Str("session_id", sess.ID).
		Uint("subscription_id", sub.ID).
		Uint("plan_id", plan.ID).
		Time("next_delivery", sub.NextDeliveryDate).
		Bool("needs_review", sub.NeedsReview).
		Msg("Subscription materialized")
	metrics.SubscriptionTransitionsTotal.WithLabelValues(subscription.SourceCheckout, string(subscription.StatusActive)).Inc()

	r.savePaymentMethod(ctx, userID, sess)
	if r.notifier != nil {
		r.notifier.SubscriptionCreated(ctx, sub.ID)
	}
	return &Result{Kind: KindSubscription, ID: sub.ID, Created: true}, nil
}

// existing devolve o registro criado pela requisição concorrente que venceu a corrida
func (r *Resolver) existing(ctx context.Context, sessionID string) (*Result, error) {
	res, err := r.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("record for session %s vanished after conflict", sessionID)
	}
	log.Info().Str("session_id", sessionID).Str("kind", string(res.Kind)).Msg("Session already materialized by concurrent request")
	return res, nil
}

// findProduct devolve ok=false quando o produto não existe mais; o item é pulado, não aborta a transação
func (r *Resolver) findProduct(tx *gorm.DB, sessionID string, productID uint, qty int) (*model.Product, bool, error) {
	if productID == 0 || qty <= 0 {
		log.Warn().
			Str("session_id", sessionID).
			Uint("product_id", productID).
			Int("quantity", qty).
			Msg("Skipping line item without catalog product")
		metrics.SkippedLineItemsTotal.Inc()
		return nil, false, nil
	}

	var product model.Product
	err := tx.First(&product, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn().
			Str("session_id", sessionID).
			Uint("product_id", productID).
			Int("quantity", qty).
			Msg("Skipping line item, product no longer exists")
		metrics.SkippedLineItemsTotal.Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load product %d: %w", productID, err)
	}
	return &product, true, nil
}

func (r *Resolver) decrementStock(tx *gorm.DB, sessionID string, productID uint, qty int) error {
	clamped, err := model.DecrementStock(tx, productID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock of product %d: %w", productID, err)
	}
	if clamped {
		log.Warn().
			Str("session_id", sessionID).
			Uint("product_id", productID).
			Int("quantity", qty).
			Msg("Stock clamped at zero")
		metrics.StockClampsTotal.Inc()
	}
	return nil
}

func parseUint(s string) uint {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}
