package presence

import (
	"github.com/google/wire"

	"bakchod/internal/store"
	"bakchod/pkg/logger"
)

// ProvideTracker is a Wire provider function that creates a Tracker with
// default typing windows
func ProvideTracker(s store.Store, log logger.Logger) *Tracker {
	return NewTracker(s, log, Options{})
}

var Set = wire.NewSet(ProvideTracker)
