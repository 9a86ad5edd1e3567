package invites

import (
	"github.com/google/wire"

	"bakchod/config"
	"bakchod/internal/store"
	"bakchod/pkg/logger"
)

// ProvideSender is a Wire provider function that creates the SMTP sender
func ProvideSender(cfg *config.Config) *EmailSender {
	return NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
}

// ProvideService is a Wire provider function that creates the invites Service
func ProvideService(s store.Store, sender *EmailSender, cfg *config.Config, log logger.Logger) *Service {
	var snd Sender
	if cfg.SMTPHost != "" {
		snd = sender
	}
	return NewService(s, snd, cfg.JoinURL, log)
}

var Set = wire.NewSet(ProvideSender, ProvideService)
