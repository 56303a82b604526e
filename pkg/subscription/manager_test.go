package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/internal/testutil"
	"fruitbox_backend/pkg/payment"
	"fruitbox_backend/pkg/payment/paymenttest"
	"fruitbox_backend/pkg/subscription"
)

var baseTime = time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

type env struct {
	db      *gorm.DB
	gateway *paymenttest.Gateway
	manager *subscription.Manager
	owner   *model.User
	admin   *model.User
	other   *model.User
	plan    *model.Plan
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	gw := paymenttest.New()
	return &env{
		db:      db,
		gateway: gw,
		manager: subscription.NewManager(db, gw, subscription.WithClock(func() time.Time { return baseTime })),
		owner:   testutil.CreateUser(t, db, "owner@example.com", model.RoleCustomer),
		admin:   testutil.CreateUser(t, db, "admin@example.com", model.RoleAdmin),
		other:   testutil.CreateUser(t, db, "other@example.com", model.RoleCustomer),
		plan:    testutil.CreatePlan(t, db, nil, 0),
	}
}

func (e *env) subscription(t *testing.T, status subscription.Status, gatewayRef string) *model.Subscription {
	t.Helper()
	sub := &model.Subscription{
		UserID:          e.owner.ID,
		PlanID:          e.plan.ID,
		Status:          string(status),
		StartDate:       baseTime.Add(-48 * time.Hour),
		StatusChangedAt: baseTime.Add(-48 * time.Hour),
	}
	if gatewayRef != "" {
		sub.StripeSubscriptionID = &gatewayRef
	}
	require.NoError(t, e.db.Omit("User", "Plan").Create(sub).Error)
	return sub
}

func (e *env) statusOf(t *testing.T, id uint) subscription.Status {
	t.Helper()
	var sub model.Subscription
	require.NoError(t, e.db.First(&sub, id).Error)
	return subscription.Status(sub.Status)
}

func (e *env) ownerActor() subscription.Actor {
	return subscription.Actor{UserID: e.owner.ID, Role: model.RoleCustomer}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to subscription.Status
		want     bool
	}{
		{subscription.StatusPending, subscription.StatusActive, true},
		{subscription.StatusPending, subscription.StatusPaused, false},
		{subscription.StatusActive, subscription.StatusPaused, true},
		{subscription.StatusActive, subscription.StatusPastDue, true},
		{subscription.StatusPaused, subscription.StatusActive, true},
		{subscription.StatusPaused, subscription.StatusPastDue, false},
		{subscription.StatusPastDue, subscription.StatusActive, true},
		{subscription.StatusPastDue, subscription.StatusCancelled, true},
		{subscription.StatusCancelled, subscription.StatusActive, false},
		{subscription.StatusCancelled, subscription.StatusPaused, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, subscription.CanTransition(tt.from, tt.to))
		})
	}
}

func TestCancelByOwner(t *testing.T) {
	e := newEnv(t)
	sub := e.subscription(t, subscription.StatusActive, "sub_1")

	got, err := e.manager.Cancel(context.Background(), sub.ID, e.ownerActor())

	require.NoError(t, err)
	assert.Equal(t, string(subscription.StatusCancelled), got.Status)
	require.NotNil(t, got.CancelledAt)
	assert.Equal(t, []string{"sub_1"}, e.gateway.CancelCalls)
	assert.Equal(t, subscription.StatusCancelled, e.statusOf(t, sub.ID))
}

func TestCancelAlreadyCancelledSkipsGateway(t *testing.T) {
	e := newEnv(t)
	sub := e.subscription(t, subscription.StatusCancelled, "sub_1")

	_, err := e.manager.Cancel(context.Background(), sub.ID, e.ownerActor())

	assert.ErrorIs(t, err, subscription.ErrAlreadyCancelled)
	assert.Equal(t, "Assinatura já está cancelada", err.Error())
	assert.Zero(t, e.gateway.CancelCount())
}

func TestCancelGatewayFailureKeepsLocalStatus(t *testing.T) {
	e := newEnv(t)
	sub := e.subscription(t, subscription.StatusPastDue, "sub_1")
	e.gateway.CancelErr = errors.New("stripe down")

	_, err := e.manager.Cancel(context.Background(), sub.ID, e.ownerActor())

	assert.ErrorIs(t, err, subscription.ErrGateway)
	assert.Equal(t, subscription.StatusPastDue, e.statusOf(t, sub.ID))
}

func TestCancelMissingGatewaySubscriptionStillCancels(t *testing.T) {
	e := newEnv(t)
	sub := e.subscription(t, subscription.StatusActive, "sub_gone")
	e.gateway.CancelErr = payment.ErrSubscriptionNotFound

	_, err := e.manager.Cancel(context.Background(), sub.ID, e.ownerActor())

	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, e.statusOf(t, sub.ID))
}

func TestCancelWithoutGatewayReference(t *testing.T) {
	e := newEnv(t)
	sub := e.subscription(t, subscription.StatusPending, "")

	_, err := e.manager.Cancel(context.Background(), sub.ID, e.ownerActor())

	require.NoError(t, err)
	assert.Zero(t, e.gateway.CancelCount())
	assert.Equal(t, subscription.StatusCancelled, e.statusOf(t, sub.ID))
}

func TestAuthorization(t *testing.T) {
	e := newEnv(t)
	sub := e.subscription(t, subscription.StatusActive, "sub_1")

	_, err := e.manager.Cancel(context.Background(), sub.ID, subscription.Actor{UserID: e.other.ID, Role: model.RoleCustomer})
	assert.ErrorIs(t, err, subscription.ErrForbidden)
	assert.Zero(t, e.gateway.CancelCount())

	_, err = e.manager.Pause(context.Background(), sub.ID, subscription.Actor{UserID: e.admin.ID, Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPaused, e.statusOf(t, sub.ID))

	_, err = e.manager.Cancel(context.Background(), 9999, e.ownerActor())
	assert.ErrorIs(t, err, subscription.ErrNotFound)
}

func TestPauseAndResume(t *testing.T) {
	e := newEnv(t)
	sub := e.subscription(t, subscription.StatusActive, "sub_1")
	ctx := context.Background()

	_, err := e.manager.Resume(ctx, sub.ID, e.ownerActor())
	assert.ErrorIs(t, err, subscription.ErrNotPaused)

	_, err = e.manager.Pause(ctx, sub.ID, e.ownerActor())
	require.NoError(t, err)

	_, err = e.manager.Pause(ctx, sub.ID, e.ownerActor())
	assert.ErrorIs(t, err, subscription.ErrAlreadyPaused)
	assert.Equal(t, "Assinatura já está pausada", err.Error())

	_, err = e.manager.Resume(ctx, sub.ID, e.ownerActor())
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, e.statusOf(t, sub.ID))

	assert.Equal(t, []string{"sub_1"}, e.gateway.PauseCalls)
	assert.Equal(t, []string{"sub_1"}, e.gateway.ResumeCalls)
}

func TestPauseGatewayFailureKeepsLocalStatus(t *testing.T) {
	e := newEnv(t)
	sub := e.subscription(t, subscription.StatusActive, "sub_1")
	e.gateway.PauseErr = payment.ErrUnavailable

	_, err := e.manager.Pause(context.Background(), sub.ID, e.ownerActor())

	assert.ErrorIs(t, err, subscription.ErrGateway)
	assert.ErrorIs(t, err, payment.ErrUnavailable)
	assert.Equal(t, subscription.StatusActive, e.statusOf(t, sub.ID))
}

func TestPausePastDueNotAllowed(t *testing.T) {
	e := newEnv(t)
	sub := e.subscription(t, subscription.StatusPastDue, "sub_1")

	_, err := e.manager.Pause(context.Background(), sub.ID, e.ownerActor())

	assert.ErrorIs(t, err, subscription.ErrInvalidTransition)
	assert.Empty(t, e.gateway.PauseCalls)
}

func TestApplyGatewayEvent(t *testing.T) {
	e := newEnv(t)
	sub := e.subscription(t, subscription.StatusActive, "sub_1")
	ctx := context.Background()

	failed := subscription.GatewayEvent{SubscriptionRef: "sub_1", Target: subscription.StatusPastDue, OccurredAt: baseTime.Add(-time.Hour)}
	outcome, err := e.manager.ApplyGatewayEvent(ctx, failed)
	require.NoError(t, err)
	assert.Equal(t, subscription.OutcomeApplied, outcome)
	assert.Equal(t, subscription.StatusPastDue, e.statusOf(t, sub.ID))

	// reentrega do mesmo evento
	outcome, err = e.manager.ApplyGatewayEvent(ctx, failed)
	require.NoError(t, err)
	assert.Equal(t, subscription.OutcomeNoop, outcome)

	paid := subscription.GatewayEvent{SubscriptionRef: "sub_1", Target: subscription.StatusActive, OccurredAt: baseTime}
	outcome, err = e.manager.ApplyGatewayEvent(ctx, paid)
	require.NoError(t, err)
	assert.Equal(t, subscription.OutcomeApplied, outcome)

	// o evento de falha chega atrasado depois do pagamento
	outcome, err = e.manager.ApplyGatewayEvent(ctx, failed)
	require.NoError(t, err)
	assert.Equal(t, subscription.OutcomeStale, outcome)
	assert.Equal(t, subscription.StatusActive, e.statusOf(t, sub.ID))
}

func TestApplyGatewayEventSameSecondAsLocalPause(t *testing.T) {
	e := newEnv(t)
	pausedAt := baseTime.Add(500 * time.Millisecond)
	manager := subscription.NewManager(e.db, e.gateway, subscription.WithClock(func() time.Time { return pausedAt }))
	sub := e.subscription(t, subscription.StatusActive, "sub_1")
	ctx := context.Background()

	_, err := manager.Pause(ctx, sub.ID, e.ownerActor())
	require.NoError(t, err)

	var stored model.Subscription
	require.NoError(t, e.db.First(&stored, sub.ID).Error)
	assert.Equal(t, subscription.SourceCustomer, stored.StatusSource)

	// invoice.paid emitido no mesmo segundo, antes da pausa, não reativa
	outcome, err := manager.ApplyGatewayEvent(ctx, subscription.GatewayEvent{
		SubscriptionRef: "sub_1",
		Target:          subscription.StatusActive,
		OccurredAt:      baseTime,
	})
	require.NoError(t, err)
	assert.Equal(t, subscription.OutcomeStale, outcome)
	assert.Equal(t, subscription.StatusPaused, e.statusOf(t, sub.ID))

	outcome, err = manager.ApplyGatewayEvent(ctx, subscription.GatewayEvent{
		SubscriptionRef: "sub_1",
		Target:          subscription.StatusActive,
		OccurredAt:      baseTime.Add(time.Second),
	})
	require.NoError(t, err)
	assert.Equal(t, subscription.OutcomeApplied, outcome)
	assert.Equal(t, subscription.StatusActive, e.statusOf(t, sub.ID))
}

func TestApplyGatewayEventsWithinSameSecond(t *testing.T) {
	e := newEnv(t)
	sub := e.subscription(t, subscription.StatusActive, "sub_1")
	ctx := context.Background()

	outcome, err := e.manager.ApplyGatewayEvent(ctx, subscription.GatewayEvent{
		SubscriptionRef: "sub_1",
		Target:          subscription.StatusPastDue,
		OccurredAt:      baseTime,
	})
	require.NoError(t, err)
	assert.Equal(t, subscription.OutcomeApplied, outcome)

	// dois eventos do gateway no mesmo segundo: o segundo ainda vale
	outcome, err = e.manager.ApplyGatewayEvent(ctx, subscription.GatewayEvent{
		SubscriptionRef: "sub_1",
		Target:          subscription.StatusActive,
		OccurredAt:      baseTime,
	})
	require.NoError(t, err)
	assert.Equal(t, subscription.OutcomeApplied, outcome)
	assert.Equal(t, subscription.StatusActive, e.statusOf(t, sub.ID))
}

func TestApplyGatewayEventCannotReviveCancelled(t *testing.T) {
	e := newEnv(t)
	sub := e.subscription(t, subscription.StatusCancelled, "sub_1")

	outcome, err := e.manager.ApplyGatewayEvent(context.Background(), subscription.GatewayEvent{
		SubscriptionRef: "sub_1",
		Target:          subscription.StatusActive,
		OccurredAt:      baseTime.Add(time.Hour),
	})

	require.NoError(t, err)
	assert.Equal(t, subscription.OutcomeIgnored, outcome)
	assert.Equal(t, subscription.StatusCancelled, e.statusOf(t, sub.ID))
}

func TestApplyGatewayEventUnknownSubscription(t *testing.T) {
	e := newEnv(t)

	outcome, err := e.manager.ApplyGatewayEvent(context.Background(), subscription.GatewayEvent{
		SubscriptionRef: "sub_nope",
		Target:          subscription.StatusActive,
	})

	require.NoError(t, err)
	assert.Equal(t, subscription.OutcomeUnknown, outcome)
}

func TestTargetForEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   payment.Event
		want subscription.Status
		ok   bool
	}{
		{"invoice paid", payment.Event{Type: payment.EventInvoicePaid}, subscription.StatusActive, true},
		{"invoice failed", payment.Event{Type: payment.EventInvoicePaymentFailed}, subscription.StatusPastDue, true},
		{"deleted", payment.Event{Type: payment.EventSubscriptionDeleted}, subscription.StatusCancelled, true},
		{"paused", payment.Event{Type: payment.EventSubscriptionUpdated, Status: "active", Paused: true}, subscription.StatusPaused, true},
		{"resumed", payment.Event{Type: payment.EventSubscriptionUpdated, Status: "active"}, subscription.StatusActive, true},
		{"incomplete", payment.Event{Type: payment.EventSubscriptionUpdated, Status: "incomplete"}, "", false},
		{"checkout", payment.Event{Type: payment.EventCheckoutCompleted}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := subscription.TargetForEvent(&tt.ev)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
