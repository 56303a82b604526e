// Package testutil monta banco e dados de apoio para os testes de integração.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fruitbox_backend/internal/model"
)

// NewDB abre um SQLite em memória com o schema completo.
// Uma única conexão serializa as transações concorrentes como o postgres faria por linha.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, email, role string) *model.User {
	t.Helper()
	user := &model.User{Email: email, Password: "x", Name: email, Role: role}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func CreateProduct(t testing.TB, db *gorm.DB, name, category string, stock int) *model.Product {
	t.Helper()
	product := &model.Product{
		Name:          name,
		Category:      category,
		Price:         decimal.RequireFromString("4.50"),
		StockQuantity: stock,
		Active:        true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// CreatePlan cria um plano com um item fixo e as regras informadas
func CreatePlan(t testing.TB, db *gorm.DB, fixed *model.Product, fixedQty int, rules ...model.CustomizationRule) *model.Plan {
	t.Helper()
	plan := &model.Plan{
		Name:   "Caixa Semanal",
		Price:  decimal.RequireFromString("89.90"),
		Active: true,
		Rules:  rules,
	}
	if fixed != nil {
		plan.FixedItems = []model.PlanFixedItem{{ProductID: fixed.ID, Quantity: fixedQty}}
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return plan
}
