package cron

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/delivery"
	"fruitbox_backend/pkg/subscription"
)

// InitDeliveryCron agenda, todo dia às 00:05 no fuso da loja, o avanço das datas de entrega vencidas
func InitDeliveryCron(c *cron.Cron, db *gorm.DB, loc *time.Location) error {
	_, err := c.AddFunc("5 0 * * *", func() {
		if _, err := RollForwardDeliveries(db, time.Now(), loc); err != nil {
			log.Error().Err(err).Msg("Delivery roll-forward failed")
		}
	})
	return err
}

// RollForwardDeliveries move para a próxima segunda as entregas já passadas das assinaturas ativas
func RollForwardDeliveries(db *gorm.DB, now time.Time, loc *time.Location) (int, error) {
	var subs []model.Subscription
	err := db.Select("id", "next_delivery_date").
		Where("status = ? AND next_delivery_date <= ?", string(subscription.StatusActive), now).
		Find(&subs).Error
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, sub := range subs {
		next := delivery.Advance(sub.NextDeliveryDate, now, loc)
		res := db.Model(&model.Subscription{}).
			Where("id = ? AND status = ?", sub.ID, string(subscription.StatusActive)).
			Update("next_delivery_date", next)
		if res.Error != nil {
			log.Error().Err(res.Error).Uint("subscription_id", sub.ID).Msg("Could not advance delivery date")
			continue
		}
		updated += int(res.RowsAffected)
	}

	log.Info().Int("found", len(subs)).Int("updated", updated).Msg("Delivery dates rolled forward")
	return updated, nil
}
