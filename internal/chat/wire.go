package chat

import (
	"github.com/google/wire"

	"bakchod/internal/store"
	"bakchod/pkg/logger"
)

// ProvideService is a Wire provider function that creates the chat Service
func ProvideService(s store.Store, log logger.Logger) *Service {
	return NewService(s, log)
}

var Set = wire.NewSet(ProvideService)
