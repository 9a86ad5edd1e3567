package presence

import (
	"context"
	"fmt"
	"time"

	"bakchod/internal/chat"
	"bakchod/internal/store"
	"bakchod/pkg/apperr"
)

// MarkRead stamps the caller's own last-read time with the server clock and
// resets the caller's own unread counter. It never touches other
// participants' fields; read state is partitioned by writer identity, so no
// cross-user conflict is possible. Server stamping also makes the last-read
// time monotonic regardless of client clock skew.
func (t *Tracker) MarkRead(ctx context.Context, chatID, userID string) error {
	if userID == "" {
		return apperr.InvalidArg("user id is required")
	}
	err := t.store.Update(ctx, chat.ChatsCollection, chatID, map[string]any{
		"unreadCounts." + userID: int64(0),
		"lastReadAt." + userID:   store.ServerTimestamp,
		"updatedAt":              store.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to mark chat read: %w", err)
	}
	return nil
}

// SubscribeReadState watches the chat document and reports each
// participant's last-read timestamp.
func (t *Tracker) SubscribeReadState(chatID string, fn func(map[string]time.Time)) store.Unsubscribe {
	return t.store.Subscribe(chat.ChatsCollection, store.Query{DocID: chatID}, func(docs []store.Document) {
		for _, doc := range docs {
			fn(doc.TimeMap("lastReadAt"))
		}
	})
}

// ReadBy reports whether a message is read by a peer: the peer's last-read
// timestamp must be at or past the message's creation time.
func ReadBy(messageCreatedAt, peerLastRead time.Time) bool {
	if peerLastRead.IsZero() {
		return false
	}
	return !peerLastRead.Before(messageCreatedAt)
}
