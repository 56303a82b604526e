package model

import (
	"strconv"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Categorias usadas nas regras de personalização dos planos
const (
	CategoryNormal = "normal"
	CategoryExotic = "exotic"
	CategoryCitrus = "citrus"
	CategoryBerry  = "berry"
)

type Product struct {
	gorm.Model
	Name          string          `json:"name" gorm:"not null"`
	Slug          string          `json:"slug" gorm:"uniqueIndex;not null"`
	Description   string          `json:"description" gorm:"type:text"`
	Category      string          `json:"category" gorm:"index;not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(10,2);not null"`
	StockQuantity int             `json:"stock_quantity" gorm:"not null;default:0"`
	ImageURL      string          `json:"image_url"`
	Active        bool            `json:"active"`
}

// BeforeCreate slug vazio é gerado a partir do nome
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.Slug == "" {
		p.Slug = uniqueSlug(tx, &Product{}, slug.Make(p.Name))
	}
	return nil
}

// ClampStock devolve o estoque depois de retirar qty, nunca abaixo de zero.
func ClampStock(current, qty int) int {
	if current <= qty {
		return 0
	}
	return current - qty
}

// DecrementStock baixa o estoque de forma atômica com piso em zero.
// clamped indica que o estoque era menor que a quantidade vendida.
func DecrementStock(tx *gorm.DB, productID uint, qty int) (clamped bool, err error) {
	var product Product
	if err := tx.Select("id", "stock_quantity").First(&product, productID).Error; err != nil {
		return false, err
	}

	err = tx.Model(&Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr("CASE WHEN stock_quantity >= ? THEN stock_quantity - ? ELSE 0 END", qty, qty)).
		Error
	return product.StockQuantity < qty, err
}

func uniqueSlug(tx *gorm.DB, table interface{}, base string) string {
	candidate := base
	for i := 2; ; i++ {
		var count int64
		tx.Session(&gorm.Session{NewDB: true}).Model(table).Unscoped().Where("slug = ?", candidate).Count(&count)
		if count == 0 {
			return candidate
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}
