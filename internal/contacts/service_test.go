package contacts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakchod/internal/identity"
	"bakchod/internal/store"
	"bakchod/pkg/logger"
)

func newService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	return NewService(m, identity.NewResolver(m, "91"), logger.Nop()), m
}

func seedUser(t *testing.T, m *store.Memory, id, phoneNormalized string) {
	t.Helper()
	err := m.Set(context.Background(), "users", id, map[string]any{
		"displayName":     id,
		"phoneNormalized": phoneNormalized,
	}, false)
	require.NoError(t, err)
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - matched contact takes the platform user id", func(t *testing.T) {
		svc, m := newService(t)
		seedUser(t, m, "user-rahul", "+919876543210")

		got, err := svc.Import(ctx, "alice", []Input{{Name: "Rahul", Phone: "98765 43210"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].IsOnApp)
		assert.Equal(t, "user-rahul", got[0].MatchedUserID)
		assert.Equal(t, "user-rahul", got[0].ID)
		assert.Equal(t, "+919876543210", got[0].Phone, "stored phone is the normalized form")
	})

	t.Run("happy path - unmatched contact is stored, not rejected", func(t *testing.T) {
		svc, _ := newService(t)

		got, err := svc.Import(ctx, "alice", []Input{{Name: "Stranger", Phone: "91234 56789"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.False(t, got[0].IsOnApp)
		assert.Empty(t, got[0].MatchedUserID)
		assert.NotEmpty(t, got[0].ID, "unmatched rows still get a stable id")

		listed, err := svc.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, got[0].ID, listed[0].ID)
	})

	t.Run("happy path - blank entries are skipped", func(t *testing.T) {
		svc, m := newService(t)
		seedUser(t, m, "user-rahul", "+919876543210")

		got, err := svc.Import(ctx, "alice", []Input{
			{},
			{Name: "Rahul", Phone: "9876543210"},
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Rahul", got[0].Name)
	})

	t.Run("happy path - re-import of a matched contact overwrites in place", func(t *testing.T) {
		svc, m := newService(t)
		seedUser(t, m, "user-rahul", "+919876543210")

		_, err := svc.Import(ctx, "alice", []Input{{Name: "Rahul", Phone: "9876543210"}})
		require.NoError(t, err)
		_, err = svc.Import(ctx, "alice", []Input{{Name: "Rahul bhai", Phone: "9876543210"}})
		require.NoError(t, err)

		listed, err := svc.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "Rahul bhai", listed[0].Name)
	})

	t.Run("sad path - missing user id", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Import(ctx, "", []Input{{Name: "Rahul", Phone: "9876543210"}})
		require.Error(t, err)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - contacts come back sorted by name", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Import(ctx, "alice", []Input{
			{Name: "Zoya", Phone: "9111111111"},
			{Name: "Amit", Phone: "9222222222"},
			{Name: "Meera", Phone: "9333333333"},
		})
		require.NoError(t, err)

		got, err := svc.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "Amit", got[0].Name)
		assert.Equal(t, "Meera", got[1].Name)
		assert.Equal(t, "Zoya", got[2].Name)
	})

	t.Run("happy path - empty book lists empty", func(t *testing.T) {
		svc, _ := newService(t)
		got, err := svc.List(ctx, "alice")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestService_RefreshStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - a contact who joined later gets matched", func(t *testing.T) {
		svc, m := newService(t)
		imported, err := svc.Import(ctx, "alice", []Input{{Name: "Stranger", Phone: "9876543210"}})
		require.NoError(t, err)
		require.False(t, imported[0].IsOnApp)

		// The stranger signs up after the import.
		seedUser(t, m, "user-stranger", "+919876543210")

		got, err := svc.RefreshStatus(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].IsOnApp)
		assert.Equal(t, "user-stranger", got[0].MatchedUserID)

		listed, err := svc.List(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, listed[0].IsOnApp, "the match is persisted")
	})

	t.Run("happy path - already matched contacts are left alone", func(t *testing.T) {
		svc, m := newService(t)
		seedUser(t, m, "user-rahul", "+919876543210")
		_, err := svc.Import(ctx, "alice", []Input{{Name: "Rahul", Phone: "9876543210"}})
		require.NoError(t, err)

		got, err := svc.RefreshStatus(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "user-rahul", got[0].MatchedUserID)
	})

	t.Run("happy path - still-unmatched contacts stay unmatched", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Import(ctx, "alice", []Input{{Name: "Stranger", Phone: "9876543210"}})
		require.NoError(t, err)

		got, err := svc.RefreshStatus(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.False(t, got[0].IsOnApp)
	})
}
