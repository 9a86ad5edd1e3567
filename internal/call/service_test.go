package call

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakchod/internal/chat"
	"bakchod/internal/store"
	"bakchod/pkg/apperr"
	"bakchod/pkg/logger"
)

func newCallService(t *testing.T) (*Service, *chat.Service, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	chats := chat.NewService(m, logger.Nop())
	return NewService(m, chats, logger.Nop()), chats, m
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - direct call", func(t *testing.T) {
		s, _, _ := newCallService(t)

		ref, err := s.Create(ctx, CreateInput{
			FromUserID:      "alice",
			FromDisplayName: "Alice",
			TargetIDs:       []string{"bob"},
			Mode:            ModeAudio,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, ref.CallID)
		assert.True(t, strings.HasPrefix(ref.RoomName, "bakchod-"))

		inv, err := s.Get(ctx, ref.CallID)
		require.NoError(t, err)
		assert.Equal(t, StatusRinging, inv.Status)
		assert.Equal(t, ModeAudio, inv.Mode)
		assert.Equal(t, []string{"bob"}, inv.TargetIDs)
		assert.Equal(t, ref.RoomName, inv.RoomName)
	})

	t.Run("happy path - group call rings current membership minus the caller", func(t *testing.T) {
		s, chats, _ := newCallService(t)
		g, err := chats.CreateGroup(ctx, chat.Participant{ID: "alice"}, "tribe",
			[]chat.Participant{{ID: "bob"}, {ID: "carol"}})
		require.NoError(t, err)

		ref, err := s.Create(ctx, CreateInput{FromUserID: "alice", TargetChatID: g.ID})
		require.NoError(t, err)

		inv, err := s.Get(ctx, ref.CallID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"bob", "carol"}, inv.TargetIDs)
		assert.Equal(t, ModeVideo, inv.Mode, "video is the default")
	})

	t.Run("happy path - group target derivation leaves the caller's slice alone", func(t *testing.T) {
		s, chats, _ := newCallService(t)
		g, err := chats.CreateGroup(ctx, chat.Participant{ID: "alice"}, "tribe",
			[]chat.Participant{{ID: "bob"}, {ID: "carol"}})
		require.NoError(t, err)

		explicit := []string{"x1", "x2"}
		_, err = s.Create(ctx, CreateInput{FromUserID: "alice", TargetChatID: g.ID, TargetIDs: explicit})
		require.NoError(t, err)

		assert.Equal(t, []string{"x1", "x2"}, explicit, "the input slice must not be overwritten")
	})

	t.Run("happy path - membership changes after ringing do not add ringers", func(t *testing.T) {
		s, chats, _ := newCallService(t)
		g, err := chats.CreateGroup(ctx, chat.Participant{ID: "alice"}, "tribe",
			[]chat.Participant{{ID: "bob"}})
		require.NoError(t, err)

		ref, err := s.Create(ctx, CreateInput{FromUserID: "alice", TargetChatID: g.ID})
		require.NoError(t, err)

		require.NoError(t, chats.AddMembers(ctx, g.ID, "alice", []chat.Participant{{ID: "dina"}}))

		inv, err := s.Get(ctx, ref.CallID)
		require.NoError(t, err)
		assert.NotContains(t, inv.TargetIDs, "dina")
	})

	t.Run("happy path - room names do not repeat", func(t *testing.T) {
		s, _, _ := newCallService(t)
		seen := map[string]bool{}
		for i := 0; i < 5; i++ {
			ref, err := s.Create(ctx, CreateInput{FromUserID: "alice", TargetIDs: []string{"bob"}})
			require.NoError(t, err)
			assert.False(t, seen[ref.RoomName])
			seen[ref.RoomName] = true
		}
	})

	t.Run("sad path - no targets", func(t *testing.T) {
		s, _, _ := newCallService(t)
		_, err := s.Create(ctx, CreateInput{FromUserID: "alice"})
		require.Error(t, err)
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	})

	t.Run("sad path - group call where the caller is the only member", func(t *testing.T) {
		s, chats, _ := newCallService(t)
		g, err := chats.CreateGroup(ctx, chat.Participant{ID: "alice"}, "just me", nil)
		require.NoError(t, err)

		_, err = s.Create(ctx, CreateInput{FromUserID: "alice", TargetChatID: g.ID})
		require.Error(t, err)
		assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
	})
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	create := func(t *testing.T, s *Service) Ref {
		t.Helper()
		ref, err := s.Create(ctx, CreateInput{FromUserID: "alice", TargetIDs: []string{"bob"}})
		require.NoError(t, err)
		return ref
	}

	t.Run("happy path - ringing to accepted to ended", func(t *testing.T) {
		s, _, _ := newCallService(t)
		ref := create(t, s)

		inv, err := s.UpdateStatus(ctx, ref.CallID, StatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, StatusAccepted, inv.Status)

		inv, err = s.UpdateStatus(ctx, ref.CallID, StatusEnded)
		require.NoError(t, err)
		assert.Equal(t, StatusEnded, inv.Status)
	})

	t.Run("happy path - update on a terminal call is a silent no-op", func(t *testing.T) {
		s, _, _ := newCallService(t)
		ref := create(t, s)
		_, err := s.UpdateStatus(ctx, ref.CallID, StatusDeclined)
		require.NoError(t, err)

		// Caller cancels after the callee already declined.
		inv, err := s.UpdateStatus(ctx, ref.CallID, StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, StatusDeclined, inv.Status, "stored state wins")

		got, err := s.Get(ctx, ref.CallID)
		require.NoError(t, err)
		assert.Equal(t, StatusDeclined, got.Status)
	})

	t.Run("happy path - same-state update is a no-op", func(t *testing.T) {
		s, _, _ := newCallService(t)
		ref := create(t, s)

		inv, err := s.UpdateStatus(ctx, ref.CallID, StatusRinging)
		require.NoError(t, err)
		assert.Equal(t, StatusRinging, inv.Status)
	})

	t.Run("sad path - skipping the accept step", func(t *testing.T) {
		s, _, _ := newCallService(t)
		ref := create(t, s)

		_, err := s.UpdateStatus(ctx, ref.CallID, StatusEnded)
		require.Error(t, err)
		assert.Equal(t, apperr.CodeFailedPrecondition, apperr.CodeOf(err))
	})

	t.Run("sad path - unknown call", func(t *testing.T) {
		s, _, _ := newCallService(t)
		_, err := s.UpdateStatus(ctx, "nope", StatusAccepted)
		require.Error(t, err)
	})
}

func TestService_SubscribeIncoming(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - only ringing calls from others", func(t *testing.T) {
		s, _, _ := newCallService(t)

		// bob's own outgoing call also targets bob's query via the broad
		// array filter if he were listed; it must never surface.
		_, err := s.Create(ctx, CreateInput{FromUserID: "alice", TargetIDs: []string{"bob"}})
		require.NoError(t, err)
		answered, err := s.Create(ctx, CreateInput{FromUserID: "carol", TargetIDs: []string{"bob"}})
		require.NoError(t, err)
		_, err = s.UpdateStatus(ctx, answered.CallID, StatusDeclined)
		require.NoError(t, err)

		var latest []Invitation
		unsub := s.SubscribeIncoming("bob", func(invs []Invitation) { latest = invs })
		defer unsub()

		require.Len(t, latest, 1)
		assert.Equal(t, "alice", latest[0].FromUserID)
		assert.Equal(t, StatusRinging, latest[0].Status)
	})

	t.Run("happy path - ring stops when the caller cancels", func(t *testing.T) {
		s, _, _ := newCallService(t)
		ref, err := s.Create(ctx, CreateInput{FromUserID: "alice", TargetIDs: []string{"bob"}})
		require.NoError(t, err)

		var latest []Invitation
		unsub := s.SubscribeIncoming("bob", func(invs []Invitation) { latest = invs })
		defer unsub()
		require.Len(t, latest, 1)

		_, err = s.UpdateStatus(ctx, ref.CallID, StatusCancelled)
		require.NoError(t, err)
		assert.Empty(t, latest)
	})
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusRinging.Terminal())
	assert.False(t, StatusAccepted.Terminal())
	assert.True(t, StatusDeclined.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusEnded.Terminal())
}
