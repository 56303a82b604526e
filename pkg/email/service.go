package email

import (
	"github.com/rs/zerolog/log"

	"fruitbox_backend/pkg/config"
)

var GlobalEmailService *EmailService

// InitEmailService deixa GlobalEmailService nil quando não há token; os chamadores pulam o envio
func InitEmailService(cfg config.EmailConfig) error {
	if cfg.ServerToken == "" {
		log.Warn().Msg("POSTMARK_SERVER_TOKEN not set, emails disabled")
		return nil
	}

	service, err := NewEmailService(NewPostmarkSender(cfg.ServerToken), cfg.From)
	if err != nil {
		return err
	}
	GlobalEmailService = service
	return nil
}
