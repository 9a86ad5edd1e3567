package contacts

import (
	"github.com/google/wire"

	"bakchod/internal/identity"
	"bakchod/internal/store"
	"bakchod/pkg/logger"
)

// ProvideService is a Wire provider function that creates the contacts Service
func ProvideService(s store.Store, r *identity.Resolver, log logger.Logger) *Service {
	return NewService(s, r, log)
}

var Set = wire.NewSet(ProvideService)
