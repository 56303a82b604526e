// Package subscription guarda o ciclo de vida das assinaturas: quais transições de status existem
// e quem pode dispará-las.
package subscription

import "fruitbox_backend/pkg/payment"

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusPastDue   Status = "past_due"
)

// Transitions lista os destinos permitidos a partir de cada status. cancelled é terminal.
var Transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusActive:    true,
		StatusCancelled: true,
	},
	StatusActive: {
		StatusPaused:    true,
		StatusPastDue:   true,
		StatusCancelled: true,
	},
	StatusPaused: {
		StatusActive:    true,
		StatusCancelled: true,
	},
	StatusPastDue: {
		StatusActive:    true,
		StatusCancelled: true,
	},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return Transitions[from][to]
}

func (s Status) Valid() bool {
	_, ok := Transitions[s]
	return ok
}

// TargetForEvent traduz um evento do gateway para o status local correspondente.
// ok=false quando o evento não altera o status da assinatura.
func TargetForEvent(ev *payment.Event) (Status, bool) {
	switch ev.Type {
	case payment.EventInvoicePaid:
		return StatusActive, true
	case payment.EventInvoicePaymentFailed:
		return StatusPastDue, true
	case payment.EventSubscriptionDeleted:
		return StatusCancelled, true
	case payment.EventSubscriptionUpdated:
		if ev.Paused {
			return StatusPaused, true
		}
		switch ev.Status {
		case payment.SubscriptionStatusActive:
			return StatusActive, true
		case payment.SubscriptionStatusPastDue:
			return StatusPastDue, true
		case payment.SubscriptionStatusCanceled:
			return StatusCancelled, true
		}
	}
	return "", false
}
