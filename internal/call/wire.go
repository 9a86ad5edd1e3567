package call

import (
	"github.com/google/wire"

	"bakchod/internal/chat"
	"bakchod/internal/store"
	"bakchod/pkg/logger"
)

// ProvideService is a Wire provider function that creates the call Service
func ProvideService(s store.Store, chats *chat.Service, log logger.Logger) *Service {
	return NewService(s, chats, log)
}

var Set = wire.NewSet(ProvideService)
