package model

import "time"

// WebhookEvent registra eventos do gateway já processados com sucesso
type WebhookEvent struct {
	ID          uint      `gorm:"primaryKey"`
	EventID     string    `gorm:"uniqueIndex;not null"`
	Type        string    `gorm:"size:100"`
	ProcessedAt time.Time `gorm:"autoCreateTime"`
}

// AllModels é a lista usada nas migrações
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Customer{},
		&Product{},
		&Plan{},
		&PlanFixedItem{},
		&CustomizationRule{},
		&Subscription{},
		&SubscriptionItem{},
		&Order{},
		&OrderItem{},
		&WebhookEvent{},
	}
}
