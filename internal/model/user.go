package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	gorm.Model
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
	Name     string `json:"name" gorm:"not null"`
	Role     string `json:"role" gorm:"not null;default:'customer'"`
	Phone    string `json:"phone"`

	// Endereço de entrega padrão (rua, número, cidade, cep...)
	Address datatypes.JSON `json:"address"`

	// Relacionamentos
	Subscriptions []Subscription `json:"-"`
	Orders        []Order        `json:"-"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":      u.ID,
		"email":   u.Email,
		"name":    u.Name,
		"role":    u.Role,
		"phone":   u.Phone,
		"address": u.Address,
	}
}
