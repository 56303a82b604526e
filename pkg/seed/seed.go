package seed

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fruitbox_backend/internal/model"
)

type seedProduct struct {
	Name     string
	Category string
	Price    string
	Stock    int
}

var catalog = []seedProduct{
	{"Banana Prata", model.CategoryNormal, "6.90", 200},
	{"Maçã Fuji", model.CategoryNormal, "9.90", 150},
	{"Mamão Formosa", model.CategoryNormal, "8.50", 80},
	{"Laranja Pera", model.CategoryCitrus, "5.90", 200},
	{"Limão Tahiti", model.CategoryCitrus, "4.50", 120},
	{"Tangerina Ponkan", model.CategoryCitrus, "7.90", 90},
	{"Morango", model.CategoryBerry, "12.90", 60},
	{"Mirtilo", model.CategoryBerry, "18.90", 40},
	{"Manga Palmer", model.CategoryExotic, "8.90", 70},
	{"Pitaya", model.CategoryExotic, "24.90", 30},
	{"Lichia", model.CategoryExotic, "29.90", 25},
}

// SeedCatalog cria produtos e planos de exemplo. Pode rodar várias vezes.
func SeedCatalog(db *gorm.DB) error {
	products := make(map[string]*model.Product, len(catalog))
	for _, sp := range catalog {
		p := model.Product{
			Name:          sp.Name,
			Category:      sp.Category,
			Price:         decimal.RequireFromString(sp.Price),
			StockQuantity: sp.Stock,
			Active:        true,
		}
		if err := db.Where(model.Product{Name: sp.Name}).FirstOrCreate(&p).Error; err != nil {
			return err
		}
		products[sp.Name] = &p
	}

	plans := []model.Plan{
		{
			Name:        "Caixa Essencial",
			Description: "Frutas da estação para duas pessoas",
			Price:       decimal.RequireFromString("59.90"),
			Active:      true,
			FixedItems: []model.PlanFixedItem{
				{ProductID: products["Banana Prata"].ID, Quantity: 6},
			},
			Rules: []model.CustomizationRule{
				{Category: model.CategoryNormal, MinQuantity: 2, MaxQuantity: 5, Position: 0},
				{Category: model.CategoryCitrus, MinQuantity: 0, MaxQuantity: 3, Position: 1},
				{Category: model.CategoryExotic, MinQuantity: 0, MaxQuantity: 0, Position: 2},
			},
		},
		{
			Name:        "Caixa Tropical",
			Description: "Para quem gosta de novidade toda semana",
			Price:       decimal.RequireFromString("89.90"),
			Active:      true,
			FixedItems: []model.PlanFixedItem{
				{ProductID: products["Laranja Pera"].ID, Quantity: 6},
				{ProductID: products["Banana Prata"].ID, Quantity: 6},
			},
			Rules: []model.CustomizationRule{
				{Category: model.CategoryExotic, MinQuantity: 1, MaxQuantity: 3, Position: 0},
				{Category: model.CategoryNormal, MinQuantity: 2, MaxQuantity: 5, Position: 1},
				{Category: model.CategoryBerry, MinQuantity: 0, MaxQuantity: 2, Position: 2},
			},
		},
	}

	for _, plan := range plans {
		var count int64
		if err := db.Model(&model.Plan{}).Where("name = ?", plan.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&plan).Error; err != nil {
			log.Error().Err(err).Str("plan", plan.Name).Msg("Error creating plan")
			return err
		}
	}

	log.Info().Int("products", len(catalog)).Int("plans", len(plans)).Msg("Catalog seeded")
	return nil
}
