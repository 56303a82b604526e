package model

import (
	"sort"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fruitbox_backend/pkg/customization"
)

type Plan struct {
	gorm.Model
	Name        string          `json:"name" gorm:"not null"`
	Slug        string          `json:"slug" gorm:"uniqueIndex;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(10,2);not null"`
	ImageURL    string          `json:"image_url"`
	Active      bool            `json:"active"`

	// Relacionamentos
	FixedItems []PlanFixedItem     `json:"fixed_items" gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`
	Rules      []CustomizationRule `json:"rules" gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`
}

func (Plan) TableName() string {
	return "subscription_plans"
}

// PlanFixedItem item que vem sempre na caixa, sem escolha do cliente
type PlanFixedItem struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	PlanID    uint `json:"plan_id" gorm:"index;not null"`
	ProductID uint `json:"product_id" gorm:"not null"`
	Quantity  int  `json:"quantity" gorm:"not null"`

	Product Product `json:"product" gorm:"foreignKey:ProductID"`
}

func (PlanFixedItem) TableName() string {
	return "plan_fixed_items"
}

// CustomizationRule limite por categoria para os itens escolhidos pelo cliente
type CustomizationRule struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	PlanID      uint   `json:"plan_id" gorm:"index;not null"`
	Category    string `json:"category" gorm:"not null"`
	MinQuantity int    `json:"min_quantity" gorm:"not null;default:0"`
	MaxQuantity int    `json:"max_quantity" gorm:"not null"`
	Position    int    `json:"position" gorm:"default:0"`
}

func (CustomizationRule) TableName() string {
	return "plan_customizable_items"
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.Slug == "" {
		p.Slug = uniqueSlug(tx, &Plan{}, slug.Make(p.Name))
	}
	return nil
}

// CustomizationRules devolve as regras do plano na ordem definida pelo admin
func (p *Plan) CustomizationRules() []customization.Rule {
	rules := make([]CustomizationRule, len(p.Rules))
	copy(rules, p.Rules)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Position < rules[j].Position })

	out := make([]customization.Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, customization.Rule{
			Category:    r.Category,
			MinQuantity: r.MinQuantity,
			MaxQuantity: r.MaxQuantity,
		})
	}
	return out
}

// LoadPlan carrega o plano com itens fixos e regras
func LoadPlan(db *gorm.DB, planID uint) (*Plan, error) {
	var plan Plan
	err := db.Preload("FixedItems").Preload("Rules").First(&plan, planID).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
