package identity

import (
	"context"
	"fmt"

	"bakchod/internal/store"
)

const (
	usersCollection    = "users"
	profilesCollection = "profiles"
)

// Match is the outcome of a contact lookup. Unmatched input is not an
// error, contact matching is best-effort.
type Match struct {
	Matched bool
	UserID  string
}

// Resolver maps imported phone numbers to platform user ids.
type Resolver struct {
	store       store.Store
	countryCode string
}

func NewResolver(s store.Store, countryCode string) *Resolver {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return &Resolver{store: s, countryCode: countryCode}
}

func (r *Resolver) NormalizePhone(raw string) string {
	return NormalizePhone(raw, r.countryCode)
}

// LookupByPhone probes each stored variant against users, then profiles,
// and returns on the first hit.
func (r *Resolver) LookupByPhone(ctx context.Context, raw string) (Match, error) {
	variants := LookupVariants(raw, r.countryCode)
	if len(variants) == 0 {
		return Match{}, nil
	}
	for _, value := range variants {
		for _, collection := range []string{usersCollection, profilesCollection} {
			docs, err := r.store.Query(ctx, collection, store.Query{
				Filters: []store.Filter{{Field: "phoneNormalized", Op: "==", Value: value}},
				Limit:   1,
			})
			if err != nil {
				return Match{}, fmt.Errorf("phone lookup in %s: %w", collection, err)
			}
			if len(docs) > 0 {
				return Match{Matched: true, UserID: docs[0].ID}, nil
			}
		}
	}
	return Match{}, nil
}
