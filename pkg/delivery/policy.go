// Package delivery concentra a política de datas de entrega das assinaturas.
package delivery

import "time"

const (
	DeliveryWeekday = time.Monday
	DeliveryHour    = 8
)

// NextDelivery devolve a próxima segunda-feira às 08:00 (no fuso da loja) estritamente depois de from.
func NextDelivery(from time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := from.In(loc)

	days := (int(DeliveryWeekday) - int(local.Weekday()) + 7) % 7
	candidate := time.Date(local.Year(), local.Month(), local.Day()+days, DeliveryHour, 0, 0, 0, loc)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// Advance move uma data de entrega já vencida para a primeira ocorrência depois de now.
func Advance(current, now time.Time, loc *time.Location) time.Time {
	if current.After(now) {
		return current
	}
	if loc == nil {
		loc = time.UTC
	}
	next := current.In(loc)
	for !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
