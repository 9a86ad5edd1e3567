// Package contacts imports a user's address book and matches entries to
// platform users by normalized phone number. Matching is best-effort: an
// unmatched contact is a stored fact ("not on app yet"), not an error, and
// can be re-resolved later via RefreshStatus.
package contacts

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bakchod/internal/identity"
	"bakchod/internal/store"
	"bakchod/pkg/apperr"
	"bakchod/pkg/logger"
)

func contactsCollection(userID string) string {
	return "users/" + userID + "/contacts"
}

type Contact struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	IsOnApp       bool   `json:"isOnApp"`
	MatchedUserID string `json:"matchedUserId,omitempty"`
}

type Input struct {
	Name  string
	Phone string
}

type Service struct {
	store    store.Store
	resolver *identity.Resolver
	log      logger.Logger
}

func NewService(s store.Store, r *identity.Resolver, log logger.Logger) *Service {
	return &Service{store: s, resolver: r, log: log}
}

// Import normalizes, matches and persists a batch of contacts for a user.
func (s *Service) Import(ctx context.Context, userID string, inputs []Input) ([]Contact, error) {
	if userID == "" {
		return nil, apperr.InvalidArg("user id is required")
	}
	out := make([]Contact, 0, len(inputs))
	for _, in := range inputs {
		if in.Name == "" && in.Phone == "" {
			continue
		}
		c := Contact{
			Name:  in.Name,
			Phone: s.resolver.NormalizePhone(in.Phone),
		}
		match, err := s.resolver.LookupByPhone(ctx, in.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve contact %q: %w", in.Name, err)
		}
		c.IsOnApp = match.Matched
		c.MatchedUserID = match.UserID
		if c.MatchedUserID != "" {
			c.ID = c.MatchedUserID
		} else {
			c.ID = uuid.NewString()
		}

		err = s.store.Set(ctx, contactsCollection(userID), c.ID, map[string]any{
			"name":          c.Name,
			"phone":         c.Phone,
			"isOnApp":       c.IsOnApp,
			"matchedUserId": c.MatchedUserID,
			"updatedAt":     store.ServerTimestamp,
		}, true)
		if err != nil {
			return nil, fmt.Errorf("failed to save contact: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Contact, error) {
	docs, err := s.store.Query(ctx, contactsCollection(userID), store.Query{OrderBy: "name"})
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	out := make([]Contact, 0, len(docs))
	for _, doc := range docs {
		out = append(out, Contact{
			ID:            doc.ID,
			Name:          doc.Str("name"),
			Phone:         doc.Str("phone"),
			IsOnApp:       doc.Bool("isOnApp"),
			MatchedUserID: doc.Str("matchedUserId"),
		})
	}
	return out, nil
}

// RefreshStatus re-resolves unmatched contacts, the retry path behind the
// "refresh status" user action.
func (s *Service) RefreshStatus(ctx context.Context, userID string) ([]Contact, error) {
	contacts, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i, c := range contacts {
		if c.IsOnApp || c.Phone == "" {
			continue
		}
		match, err := s.resolver.LookupByPhone(ctx, c.Phone)
		if err != nil {
			s.log.Warn("contact refresh lookup failed", "contact", c.ID, "err", err)
			continue
		}
		if !match.Matched {
			continue
		}
		contacts[i].IsOnApp = true
		contacts[i].MatchedUserID = match.UserID
		err = s.store.Set(ctx, contactsCollection(userID), c.ID, map[string]any{
			"isOnApp":       true,
			"matchedUserId": match.UserID,
			"updatedAt":     store.ServerTimestamp,
		}, true)
		if err != nil {
			return nil, fmt.Errorf("failed to update contact %s: %w", c.ID, err)
		}
	}
	return contacts, nil
}
