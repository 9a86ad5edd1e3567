package identity

import (
	"github.com/google/wire"

	"bakchod/config"
	"bakchod/internal/store"
	"bakchod/pkg/jwt"
)

// ProvideJWT is a Wire provider function that creates the token verifier
func ProvideJWT(cfg *config.Config) *jwt.JWT {
	return jwt.NewJWT(string(cfg.JWTSecret), 24*60*60)
}

// ProvideProvider is a Wire provider function that creates the identity Provider
func ProvideProvider(tokens *jwt.JWT) *Provider {
	return NewProvider(tokens)
}

// ProvideResolver is a Wire provider function that creates the phone Resolver
func ProvideResolver(s store.Store, cfg *config.Config) *Resolver {
	return NewResolver(s, cfg.CountryCode)
}

var Set = wire.NewSet(ProvideJWT, ProvideProvider, ProvideResolver)
