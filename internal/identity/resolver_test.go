package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakchod/internal/store"
)

func TestResolver_LookupByPhone(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - match in users by normalized form", func(t *testing.T) {
		m := store.NewMemory()
		require.NoError(t, m.Set(ctx, "users", "u1", map[string]any{"phoneNormalized": "+919876543210"}, false))
		r := NewResolver(m, "91")

		match, err := r.LookupByPhone(ctx, "98765 43210")
		require.NoError(t, err)
		assert.True(t, match.Matched)
		assert.Equal(t, "u1", match.UserID)
	})

	t.Run("happy path - falls back to profiles when users has no hit", func(t *testing.T) {
		m := store.NewMemory()
		require.NoError(t, m.Set(ctx, "profiles", "u2", map[string]any{"phoneNormalized": "9876543210"}, false))
		r := NewResolver(m, "91")

		match, err := r.LookupByPhone(ctx, "+919876543210")
		require.NoError(t, err)
		assert.True(t, match.Matched)
		assert.Equal(t, "u2", match.UserID)
	})

	t.Run("happy path - users wins over profiles for the same variant", func(t *testing.T) {
		m := store.NewMemory()
		require.NoError(t, m.Set(ctx, "users", "u1", map[string]any{"phoneNormalized": "+919876543210"}, false))
		require.NoError(t, m.Set(ctx, "profiles", "u2", map[string]any{"phoneNormalized": "+919876543210"}, false))
		r := NewResolver(m, "91")

		match, err := r.LookupByPhone(ctx, "9876543210")
		require.NoError(t, err)
		assert.Equal(t, "u1", match.UserID)
	})

	t.Run("sad path - no match is not an error", func(t *testing.T) {
		m := store.NewMemory()
		r := NewResolver(m, "91")

		match, err := r.LookupByPhone(ctx, "9876543210")
		require.NoError(t, err)
		assert.False(t, match.Matched)
		assert.Empty(t, match.UserID)
	})

	t.Run("sad path - empty input short-circuits", func(t *testing.T) {
		m := store.NewMemory()
		r := NewResolver(m, "91")

		match, err := r.LookupByPhone(ctx, "")
		require.NoError(t, err)
		assert.False(t, match.Matched)
	})
}
