package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakchod/internal/chat"
	"bakchod/internal/store"
	"bakchod/pkg/logger"
)

func TestTracker_Keystroke(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - keystroke publishes a server-stamped record", func(t *testing.T) {
		m := store.NewMemory()
		tr := NewTracker(m, logger.Nop(), Options{IdleClear: time.Hour})

		require.NoError(t, tr.Keystroke(ctx, "c1", "alice", "Alice"))

		doc, err := m.Get(ctx, chat.TypingCollection("c1"), "alice")
		require.NoError(t, err)
		assert.Equal(t, "Alice", doc.Str("displayName"))
		_, ok := doc.Time("at")
		assert.True(t, ok)
	})

	t.Run("happy path - stop on send clears immediately", func(t *testing.T) {
		m := store.NewMemory()
		tr := NewTracker(m, logger.Nop(), Options{IdleClear: time.Hour})

		require.NoError(t, tr.Keystroke(ctx, "c1", "alice", "Alice"))
		require.NoError(t, tr.Stop(ctx, "c1", "alice"))

		_, err := m.Get(ctx, chat.TypingCollection("c1"), "alice")
		assert.Error(t, err)
	})

	t.Run("happy path - idle timeout clears the record", func(t *testing.T) {
		m := store.NewMemory()
		tr := NewTracker(m, logger.Nop(), Options{IdleClear: 20 * time.Millisecond})

		require.NoError(t, tr.Keystroke(ctx, "c1", "alice", "Alice"))

		require.Eventually(t, func() bool {
			_, err := m.Get(ctx, chat.TypingCollection("c1"), "alice")
			return err != nil
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("happy path - continued typing republishes only near staleness", func(t *testing.T) {
		base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		m := store.NewMemoryWithClock(func() time.Time { return base })

		localNow := base
		tr := NewTracker(m, logger.Nop(), Options{
			TypingTTL: 4 * time.Second,
			IdleClear: time.Hour,
			Clock:     func() time.Time { return localNow },
		})

		require.NoError(t, tr.Keystroke(ctx, "c1", "alice", "Alice"))
		doc, err := m.Get(ctx, chat.TypingCollection("c1"), "alice")
		require.NoError(t, err)
		first, _ := doc.Time("at")

		// A burst of keystrokes well inside the refresh window writes
		// nothing new.
		localNow = base.Add(time.Second)
		require.NoError(t, tr.Keystroke(ctx, "c1", "alice", "Alice"))
		require.NoError(t, tr.Keystroke(ctx, "c1", "alice", "Alice"))
		doc, err = m.Get(ctx, chat.TypingCollection("c1"), "alice")
		require.NoError(t, err)
		at, _ := doc.Time("at")
		assert.True(t, at.Equal(first), "keystrokes inside the refresh window must not rewrite the record")

		// Past half the TTL the record is refreshed so subscribers keep
		// seeing it live.
		localNow = base.Add(3 * time.Second)
		require.NoError(t, tr.Keystroke(ctx, "c1", "alice", "Alice"))
		doc, err = m.Get(ctx, chat.TypingCollection("c1"), "alice")
		require.NoError(t, err)
		at, _ = doc.Time("at")
		assert.True(t, at.After(first), "typing past half the TTL refreshes the record")
	})

	t.Run("happy path - first keystroke after stop publishes again", func(t *testing.T) {
		m := store.NewMemory()
		tr := NewTracker(m, logger.Nop(), Options{IdleClear: time.Hour})

		require.NoError(t, tr.Keystroke(ctx, "c1", "alice", "Alice"))
		require.NoError(t, tr.Stop(ctx, "c1", "alice"))
		require.NoError(t, tr.Keystroke(ctx, "c1", "alice", "Alice"))

		_, err := m.Get(ctx, chat.TypingCollection("c1"), "alice")
		assert.NoError(t, err)
	})

	t.Run("happy path - later keystrokes push the deadline out", func(t *testing.T) {
		m := store.NewMemory()
		tr := NewTracker(m, logger.Nop(), Options{IdleClear: 60 * time.Millisecond})

		require.NoError(t, tr.Keystroke(ctx, "c1", "alice", "Alice"))
		for i := 0; i < 3; i++ {
			time.Sleep(30 * time.Millisecond)
			require.NoError(t, tr.Keystroke(ctx, "c1", "alice", "Alice"))
		}
		// Well past the original deadline, still typing.
		_, err := m.Get(ctx, chat.TypingCollection("c1"), "alice")
		assert.NoError(t, err)
	})
}

func TestTracker_SubscribeTyping(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - live records are delivered", func(t *testing.T) {
		m := store.NewMemory()
		tr := NewTracker(m, logger.Nop(), Options{IdleClear: time.Hour})

		var latest []Typist
		unsub := tr.SubscribeTyping("c1", func(ts []Typist) { latest = ts })
		defer unsub()

		require.NoError(t, tr.Keystroke(ctx, "c1", "bob", "Bob"))
		require.Len(t, latest, 1)
		assert.Equal(t, "bob", latest[0].UserID)
		assert.Equal(t, "Bob", latest[0].DisplayName)
	})

	t.Run("happy path - stale records are filtered out", func(t *testing.T) {
		base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		m := store.NewMemoryWithClock(func() time.Time { return base })

		// The record is written at base; the subscriber's clock has moved
		// past the TTL.
		localNow := base.Add(6 * time.Second)
		tr := NewTracker(m, logger.Nop(), Options{
			TypingTTL: 5 * time.Second,
			IdleClear: time.Hour,
			Clock:     func() time.Time { return localNow },
		})
		require.NoError(t, tr.Keystroke(ctx, "c1", "bob", "Bob"))

		var latest []Typist
		unsub := tr.SubscribeTyping("c1", func(ts []Typist) { latest = ts })
		defer unsub()

		assert.Empty(t, latest, "record older than the TTL is treated as absent")
	})

	t.Run("happy path - fresh records survive the filter", func(t *testing.T) {
		base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		m := store.NewMemoryWithClock(func() time.Time { return base })

		localNow := base.Add(2 * time.Second)
		tr := NewTracker(m, logger.Nop(), Options{
			TypingTTL: 5 * time.Second,
			IdleClear: time.Hour,
			Clock:     func() time.Time { return localNow },
		})
		require.NoError(t, tr.Keystroke(ctx, "c1", "bob", "Bob"))

		var latest []Typist
		unsub := tr.SubscribeTyping("c1", func(ts []Typist) { latest = ts })
		defer unsub()

		require.Len(t, latest, 1)
		assert.Equal(t, "bob", latest[0].UserID)
	})
}

func TestTracker_Receipts(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - mark read resets own counter and stamps lastReadAt", func(t *testing.T) {
		m := store.NewMemory()
		require.NoError(t, m.Set(ctx, chat.ChatsCollection, "c1", map[string]any{
			"unreadCounts": map[string]any{"alice": int64(4), "bob": int64(2)},
		}, false))
		tr := NewTracker(m, logger.Nop(), Options{})

		require.NoError(t, tr.MarkRead(ctx, "c1", "alice"))

		doc, err := m.Get(ctx, chat.ChatsCollection, "c1")
		require.NoError(t, err)
		counts := doc.IntMap("unreadCounts")
		assert.Equal(t, int64(0), counts["alice"])
		assert.Equal(t, int64(2), counts["bob"], "other participants' counters are untouched")
		reads := doc.TimeMap("lastReadAt")
		assert.False(t, reads["alice"].IsZero())
	})

	t.Run("happy path - mark read is idempotent", func(t *testing.T) {
		m := store.NewMemory()
		require.NoError(t, m.Set(ctx, chat.ChatsCollection, "c1", map[string]any{
			"unreadCounts": map[string]any{"alice": int64(4)},
		}, false))
		tr := NewTracker(m, logger.Nop(), Options{})

		require.NoError(t, tr.MarkRead(ctx, "c1", "alice"))
		first, _ := m.Get(ctx, chat.ChatsCollection, "c1")
		require.NoError(t, tr.MarkRead(ctx, "c1", "alice"))
		second, _ := m.Get(ctx, chat.ChatsCollection, "c1")

		assert.Equal(t, int64(0), second.IntMap("unreadCounts")["alice"])
		assert.True(t, !second.TimeMap("lastReadAt")["alice"].Before(first.TimeMap("lastReadAt")["alice"]),
			"last-read only moves forward")
	})

	t.Run("happy path - read state subscription reports per-user timestamps", func(t *testing.T) {
		m := store.NewMemory()
		require.NoError(t, m.Set(ctx, chat.ChatsCollection, "c1", map[string]any{"unreadCounts": map[string]any{}}, false))
		tr := NewTracker(m, logger.Nop(), Options{})

		var latest map[string]time.Time
		unsub := tr.SubscribeReadState("c1", func(reads map[string]time.Time) { latest = reads })
		defer unsub()

		require.NoError(t, tr.MarkRead(ctx, "c1", "bob"))
		require.NotNil(t, latest)
		assert.False(t, latest["bob"].IsZero())
	})
}

func TestReadBy(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("read at or after creation", func(t *testing.T) {
		assert.True(t, ReadBy(created, created))
		assert.True(t, ReadBy(created, created.Add(time.Minute)))
	})

	t.Run("unread when last-read precedes creation or is missing", func(t *testing.T) {
		assert.False(t, ReadBy(created, created.Add(-time.Second)))
		assert.False(t, ReadBy(created, time.Time{}))
	})
}
