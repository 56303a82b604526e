package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/email"
)

// InitLowStockCron envia toda manhã aos administradores a lista de produtos ativos com estoque baixo
func InitLowStockCron(c *cron.Cron, db *gorm.DB, emailService *email.EmailService, threshold int) error {
	// Todo dia às 07:00
	_, err := c.AddFunc("0 7 * * *", func() {
		sendLowStockReport(context.Background(), db, emailService, threshold, time.Now())
	})
	return err
}

func LowStockProducts(db *gorm.DB, threshold int) ([]model.Product, error) {
	var products []model.Product
	err := db.Where("active = ? AND stock_quantity <= ?", true, threshold).
		Order("stock_quantity ASC, name ASC").
		Find(&products).Error
	return products, err
}

func sendLowStockReport(ctx context.Context, db *gorm.DB, emailService *email.EmailService, threshold int, now time.Time) {
	products, err := LowStockProducts(db, threshold)
	if err != nil {
		log.Error().Err(err).Msg("Could not fetch low stock products")
		return
	}
	if len(products) == 0 {
		return
	}

	for _, p := range products {
		log.Warn().Uint("product_id", p.ID).Str("product", p.Name).Int("stock", p.StockQuantity).Msg("Low stock")
	}
	if emailService == nil {
		return
	}

	data := email.LowStockReportData{Date: now, Threshold: threshold}
	for _, p := range products {
		data.Products = append(data.Products, email.LowStockProduct{Name: p.Name, StockQuantity: p.StockQuantity})
	}

	var admins []model.User
	if err := db.Where("role = ?", model.RoleAdmin).Find(&admins).Error; err != nil {
		log.Error().Err(err).Msg("Could not fetch admins for low stock report")
		return
	}
	for _, admin := range admins {
		if err := emailService.SendLowStockReport(ctx, admin.Email, data); err != nil {
			log.Error().Err(err).Str("email", admin.Email).Msg("Could not send low stock report")
		}
	}
}
