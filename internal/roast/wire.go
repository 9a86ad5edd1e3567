package roast

import (
	"github.com/google/wire"

	"bakchod/internal/chat"
	"bakchod/pkg/logger"
)

// ProvideService is a Wire provider function that creates the roast Service
// with no external generator, so every roast comes from the offline pool
func ProvideService(chats *chat.Service, log logger.Logger) *Service {
	return NewService(nil, chats, log)
}

var Set = wire.NewSet(ProvideService)
