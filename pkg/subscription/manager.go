package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/metrics"
	"fruitbox_backend/pkg/payment"
)

var (
	ErrNotFound          = errors.New("Assinatura não encontrada")
	ErrForbidden         = errors.New("Você não tem permissão para alterar esta assinatura")
	ErrAlreadyCancelled  = errors.New("Assinatura já está cancelada")
	ErrAlreadyPaused     = errors.New("Assinatura já está pausada")
	ErrNotPaused         = errors.New("Assinatura não está pausada")
	ErrInvalidTransition = errors.New("Operação não permitida no status atual da assinatura")
	ErrConflict          = errors.New("A assinatura foi alterada por outra operação, tente novamente")
	ErrGateway           = errors.New("Não foi possível falar com o gateway de pagamento, tente novamente")
)

// Actor é o principal autenticado que pede a operação
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// Origem da última mudança de status
const (
	SourceCustomer = "customer"
	SourceAdmin    = "admin"
	SourceGateway  = "gateway"
	SourceCheckout = "checkout"
)

func (a Actor) source() string {
	if a.IsAdmin() {
		return SourceAdmin
	}
	return SourceCustomer
}

// Notifier é avisado depois de um cancelamento efetivado
type Notifier interface {
	SubscriptionCancelled(ctx context.Context, subscriptionID uint)
}

type Manager struct {
	db       *gorm.DB
	gateway  payment.Gateway
	now      func() time.Time
	notifier Notifier
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

func NewManager(db *gorm.DB, gateway payment.Gateway, opts ...Option) *Manager {
	m := &Manager{db: db, gateway: gateway, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cancel encerra a cobrança recorrente no gateway e só então marca a assinatura como cancelada.
func (m *Manager) Cancel(ctx context.Context, id uint, actor Actor) (*model.Subscription, error) {
	sub, err := m.authorized(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	from := Status(sub.Status)
	if from == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if !CanTransition(from, StatusCancelled) {
		return nil, ErrInvalidTransition
	}

	if sub.StripeSubscriptionID != nil {
		err := m.gateway.CancelSubscription(ctx, *sub.StripeSubscriptionID)
		if errors.Is(err, payment.ErrSubscriptionNotFound) {
			// já não existe no gateway, nada mais a cobrar
			log.Warn().Uint("subscription_id", sub.ID).Str("gateway_ref", *sub.StripeSubscriptionID).Msg("Gateway subscription missing on cancel")
		} else if err != nil {
			log.Error().Err(err).Uint("subscription_id", sub.ID).Msg("Gateway cancel failed, local status unchanged")
			return nil, fmt.Errorf("%w: %w", ErrGateway, err)
		}
	}

	if err := m.transition(ctx, sub, from, StatusCancelled, m.now(), actor.source()); err != nil {
		return nil, err
	}
	if m.notifier != nil {
		m.notifier.SubscriptionCancelled(ctx, sub.ID)
	}
	return sub, nil
}

// Pause suspende as entregas e a cobrança. Só assinaturas ativas podem ser pausadas.
func (m *Manager) Pause(ctx context.Context, id uint, actor Actor) (*model.Subscription, error) {
	sub, err := m.authorized(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	from := Status(sub.Status)
	switch from {
	case StatusPaused:
		return nil, ErrAlreadyPaused
	case StatusCancelled:
		return nil, ErrAlreadyCancelled
	}
	if !CanTransition(from, StatusPaused) {
		return nil, ErrInvalidTransition
	}

	if sub.StripeSubscriptionID != nil {
		if err := m.gateway.PauseSubscription(ctx, *sub.StripeSubscriptionID); err != nil {
			log.Error().Err(err).Uint("subscription_id", sub.ID).Msg("Gateway pause failed, local status unchanged")
			return nil, fmt.Errorf("%w: %w", ErrGateway, err)
		}
	}

	if err := m.transition(ctx, sub, from, StatusPaused, m.now(), actor.source()); err != nil {
		return nil, err
	}
	return sub, nil
}

func (m *Manager) Resume(ctx context.Context, id uint, actor Actor) (*model.Subscription, error) {
	sub, err := m.authorized(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	from := Status(sub.Status)
	if from == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if from != StatusPaused {
		return nil, ErrNotPaused
	}

	if sub.StripeSubscriptionID != nil {
		if err := m.gateway.ResumeSubscription(ctx, *sub.StripeSubscriptionID); err != nil {
			log.Error().Err(err).Uint("subscription_id", sub.ID).Msg("Gateway resume failed, local status unchanged")
			return nil, fmt.Errorf("%w: %w", ErrGateway, err)
		}
	}

	if err := m.transition(ctx, sub, from, StatusActive, m.now(), actor.source()); err != nil {
		return nil, err
	}
	return sub, nil
}

type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoop    Outcome = "noop"
	OutcomeStale   Outcome = "stale"
	OutcomeIgnored Outcome = "ignored"
	OutcomeUnknown Outcome = "unknown"
)

// GatewayEvent é uma mudança de status vinda do webhook
type GatewayEvent struct {
	SubscriptionRef string
	Target          Status
	OccurredAt      time.Time
}

// ApplyGatewayEvent aplica o evento de forma idempotente. Eventos anteriores à última mudança
// registrada não regridem o status.
func (m *Manager) ApplyGatewayEvent(ctx context.Context, ev GatewayEvent) (Outcome, error) {
	var sub model.Subscription
	err := m.db.WithContext(ctx).Where("stripe_subscription_id = ?", ev.SubscriptionRef).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn().Str("gateway_ref", ev.SubscriptionRef).Str("target", string(ev.Target)).Msg("Webhook for unknown subscription")
		return OutcomeUnknown, nil
	}
	if err != nil {
		return "", err
	}

	from := Status(sub.Status)
	logger := log.With().
		Uint("subscription_id", sub.ID).
		Str("from", string(from)).
		Str("to", string(ev.Target)).
		Time("occurred_at", ev.OccurredAt).
		Logger()

	if from == ev.Target {
		return OutcomeNoop, nil
	}
	if staleEvent(&sub, ev.OccurredAt) {
		logger.Info().Time("status_changed_at", sub.StatusChangedAt).Msg("Ignoring stale gateway event")
		return OutcomeStale, nil
	}
	if !CanTransition(from, ev.Target) {
		logger.Warn().Msg("Ignoring gateway event with disallowed transition")
		return OutcomeIgnored, nil
	}

	at := ev.OccurredAt
	if at.IsZero() {
		at = m.now()
	}
	if err := m.transition(ctx, &sub, from, ev.Target, at, SourceGateway); err != nil {
		if errors.Is(err, ErrConflict) {
			logger.Info().Msg("Subscription changed concurrently, gateway event dropped")
			return OutcomeStale, nil
		}
		return "", err
	}
	if ev.Target == StatusCancelled && m.notifier != nil {
		m.notifier.SubscriptionCancelled(ctx, sub.ID)
	}
	return OutcomeApplied, nil
}

// staleEvent diz se o evento é anterior à última mudança registrada. O gateway informa segundos:
// entre eventos do gateway o mesmo segundo ainda vale, mas uma ação local (cliente, admin, checkout)
// só é desfeita por evento de um segundo posterior.
func staleEvent(sub *model.Subscription, occurred time.Time) bool {
	if occurred.IsZero() {
		return false
	}
	if sub.StatusSource == SourceGateway {
		return occurred.Before(sub.StatusChangedAt.Truncate(time.Second))
	}
	return !occurred.After(sub.StatusChangedAt)
}

func (m *Manager) authorized(ctx context.Context, id uint, actor Actor) (*model.Subscription, error) {
	var sub model.Subscription
	err := m.db.WithContext(ctx).First(&sub, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if sub.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return &sub, nil
}

// transition grava o novo status apenas se ninguém o alterou desde a leitura
func (m *Manager) transition(ctx context.Context, sub *model.Subscription, from, to Status, at time.Time, source string) error {
	updates := map[string]interface{}{
		"status":            string(to),
		"status_changed_at": at,
		"status_source":     source,
	}
	if to == StatusCancelled {
		updates["cancelled_at"] = at
	}

	res := m.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ? AND status = ?", sub.ID, string(from)).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update subscription %d: %w", sub.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}

	sub.Status = string(to)
	sub.StatusChangedAt = at
	sub.StatusSource = source
	if to == StatusCancelled {
		sub.CancelledAt = &at
	}

	log.Info().
		Uint("subscription_id", sub.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("source", source).
		Msg("Subscription status changed")
	metrics.SubscriptionTransitionsTotal.WithLabelValues(source, string(to)).Inc()
	return nil
}
