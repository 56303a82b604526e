package model

import (
	"time"

	"gorm.io/gorm"
)

type Subscription struct {
	gorm.Model
	UserID           uint      `json:"user_id" gorm:"index;not null"`
	PlanID           uint      `json:"plan_id" gorm:"index;not null"`
	Status           string    `json:"status" gorm:"index;not null"` // pending, active, paused, cancelled, past_due
	StartDate        time.Time `json:"start_date"`
	NextDeliveryDate time.Time `json:"next_delivery_date" gorm:"index"`

	// Referências do gateway. A sessão de checkout é a chave de idempotência da materialização.
	StripeCheckoutSessionID *string `json:"stripe_checkout_session_id,omitempty" gorm:"uniqueIndex"`
	StripeSubscriptionID    *string `json:"stripe_subscription_id,omitempty" gorm:"uniqueIndex"`

	// Momento do último evento/ação que alterou o status; eventos mais antigos são ignorados
	StatusChangedAt time.Time  `json:"status_changed_at"`
	StatusSource    string     `json:"status_source" gorm:"size:20"` // checkout, customer, admin, gateway
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`

	NeedsReview bool   `json:"needs_review" gorm:"default:false"`
	ReviewNote  string `json:"review_note,omitempty" gorm:"type:text"`

	// Relacionamentos
	User  User               `json:"-" gorm:"foreignKey:UserID"`
	Plan  Plan               `json:"plan" gorm:"foreignKey:PlanID"`
	Items []SubscriptionItem `json:"items" gorm:"foreignKey:SubscriptionID;constraint:OnDelete:CASCADE"`
}

func (Subscription) TableName() string {
	return "user_subscriptions"
}

// SubscriptionItem é a personalização materializada, criada uma única vez junto com a assinatura
type SubscriptionItem struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	SubscriptionID uint `json:"subscription_id" gorm:"index;not null"`
	ProductID      uint `json:"product_id" gorm:"not null"`
	Quantity       int  `json:"quantity" gorm:"not null"`

	Product Product `json:"product" gorm:"foreignKey:ProductID"`
}

func (SubscriptionItem) TableName() string {
	return "subscription_items"
}

// FlagForReview acumula notas de reconciliação manual
func (s *Subscription) FlagForReview(note string) {
	s.NeedsReview = true
	if s.ReviewNote != "" {
		s.ReviewNote += "\n"
	}
	s.ReviewNote += note
}
