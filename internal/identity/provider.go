package identity

import (
	"sync"

	"bakchod/infrastructure"
	"bakchod/pkg/jwt"
)

// Provider resolves the authenticated user id from a bearer token. Identity
// issuance itself lives with the external auth platform; this side only
// verifies.
type Provider struct {
	tokens *jwt.JWT

	mu    sync.Mutex
	hooks []func(userID string)
}

func NewProvider(tokens *jwt.JWT) *Provider {
	return &Provider{tokens: tokens}
}

func (p *Provider) CurrentUserID(token string) (string, error) {
	if token == "" {
		return "", infrastructure.ErrMissingToken
	}
	claims, err := p.tokens.ValidateToken(token)
	if err != nil {
		return "", infrastructure.ErrInvalidToken
	}
	return claims.UserID, nil
}

// OnChange registers a hook fired when a new identity is observed.
func (p *Provider) OnChange(fn func(userID string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, fn)
}

// NotifyChange invokes registered hooks. Called by the API layer when the
// resolved identity differs from the previous request's.
func (p *Provider) NotifyChange(userID string) {
	p.mu.Lock()
	hooks := append([]func(string){}, p.hooks...)
	p.mu.Unlock()
	for _, fn := range hooks {
		fn(userID)
	}
}
