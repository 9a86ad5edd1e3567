package visibility

import (
	"github.com/google/wire"

	"bakchod/internal/store"
)

// ProvideService is a Wire provider function that creates the visibility Service
func ProvideService(s store.Store) *Service {
	return NewService(s)
}

var Set = wire.NewSet(ProvideService)
