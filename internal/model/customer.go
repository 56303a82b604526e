package model

import "gorm.io/gorm"

// Customer liga o usuário ao cliente do gateway, para cobranças futuras fora da sessão
type Customer struct {
	gorm.Model
	UserID                 uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	StripeCustomerID       string `json:"stripe_customer_id" gorm:"uniqueIndex;not null"`
	DefaultPaymentMethodID string `json:"default_payment_method_id"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

func (Customer) TableName() string {
	return "customers"
}
