package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Order Status
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

var OrderStatuses = map[string]bool{
	OrderStatusPending:   true,
	OrderStatusPaid:      true,
	OrderStatusShipped:   true,
	OrderStatusDelivered: true,
	OrderStatusCancelled: true,
}

type Order struct {
	gorm.Model
	UserID uint   `json:"user_id" gorm:"index;not null"`
	Status string `json:"status" gorm:"index;not null"`

	// Guarda a referência da sessão de pagamento; o índice único impede materialização dupla
	StripePaymentIntentID string `json:"stripe_payment_intent_id" gorm:"uniqueIndex;not null"`

	Total           decimal.Decimal `json:"total" gorm:"type:numeric(10,2);not null"`
	Currency        string          `json:"currency" gorm:"size:3"`
	ShippingAddress datatypes.JSON  `json:"shipping_address"`

	NeedsReview bool   `json:"needs_review" gorm:"default:false"`
	ReviewNote  string `json:"review_note,omitempty" gorm:"type:text"`

	// Relacionamentos
	User  User        `json:"-" gorm:"foreignKey:UserID"`
	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

type OrderItem struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	OrderID   uint            `json:"order_id" gorm:"index;not null"`
	ProductID uint            `json:"product_id" gorm:"not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric(10,2)"`

	Product Product `json:"product" gorm:"foreignKey:ProductID"`
}

func (o *Order) FlagForReview(note string) {
	o.NeedsReview = true
	if o.ReviewNote != "" {
		o.ReviewNote += "\n"
	}
	o.ReviewNote += note
}
