package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReconciliationsTotal conta as reconciliações de checkout por tipo e resultado.
	ReconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fruitbox",
		Subsystem: "checkout",
		Name:      "reconciliations_total",
		Help:      "Checkout reconciliations by record kind and outcome.",
	}, []string{"kind", "outcome"})

	// SkippedLineItemsTotal conta itens pagos que não puderam ser materializados.
	SkippedLineItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fruitbox",
		Subsystem: "checkout",
		Name:      "skipped_line_items_total",
		Help:      "Paid line items skipped because the product no longer exists.",
	})

	// StockClampsTotal conta baixas de estoque que bateram no piso zero.
	StockClampsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fruitbox",
		Subsystem: "inventory",
		Name:      "stock_clamps_total",
		Help:      "Stock decrements clamped at zero.",
	})

	// WebhookEventsTotal conta eventos do gateway por tipo e resultado.
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fruitbox",
		Subsystem: "webhook",
		Name:      "events_total",
		Help:      "Payment gateway webhook events by type and outcome.",
	}, []string{"event_type", "outcome"})

	// SubscriptionTransitionsTotal conta transições de status aplicadas.
	SubscriptionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fruitbox",
		Subsystem: "subscription",
		Name:      "transitions_total",
		Help:      "Subscription status transitions by source and target status.",
	}, []string{"source", "to"})
)
