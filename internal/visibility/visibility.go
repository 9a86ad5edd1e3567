// Package visibility layers "clear chat for me" and "delete message for me"
// on top of the shared message log. The filter is applied at consumption
// time on every snapshot; the log itself is never mutated, so one
// participant's housekeeping can never change what others see.
package visibility

import (
	"context"
	"fmt"
	"time"

	"bakchod/internal/chat"
	"bakchod/internal/store"
	"bakchod/pkg/apperr"
)

// SettingsCollection is the per-user chat settings path. Only the owning
// user ever writes here.
func SettingsCollection(userID string) string {
	return "users/" + userID + "/chatSettings"
}

// State is one user's view filter for one chat.
type State struct {
	ClearedBefore *time.Time
	Deleted       map[string]struct{}
	Muted         bool
}

type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

func (s *Service) Get(ctx context.Context, userID, chatID string) (State, error) {
	doc, err := s.store.Get(ctx, SettingsCollection(userID), chatID)
	if err != nil {
		// No settings yet means nothing is hidden.
		return State{Deleted: map[string]struct{}{}}, nil
	}
	st := State{Deleted: map[string]struct{}{}, Muted: doc.Bool("muted")}
	if ts, ok := doc.Time("clearedBefore"); ok {
		st.ClearedBefore = &ts
	}
	for _, id := range doc.StrSlice("deletedMessageIds") {
		st.Deleted[id] = struct{}{}
	}
	return st, nil
}

// ClearForMe collapses the caller's view of the chat to empty by recording
// the server's "now" as the cutoff. No message is deleted and no other
// participant's counters are touched.
func (s *Service) ClearForMe(ctx context.Context, userID, chatID string) error {
	if userID == "" {
		return apperr.InvalidArg("user id is required")
	}
	err := s.store.Set(ctx, SettingsCollection(userID), chatID, map[string]any{
		"clearedBefore": store.ServerTimestamp,
		"updatedAt":     store.ServerTimestamp,
	}, true)
	if err != nil {
		return fmt.Errorf("failed to clear chat: %w", err)
	}
	return nil
}

// DeleteForMe hides a single message from the caller's view. The settings
// record is single-writer (the owning user), so read-modify-write is safe.
func (s *Service) DeleteForMe(ctx context.Context, userID, chatID, messageID string) error {
	if userID == "" || messageID == "" {
		return apperr.InvalidArg("user and message ids are required")
	}
	var deleted []string
	if doc, err := s.store.Get(ctx, SettingsCollection(userID), chatID); err == nil {
		deleted = doc.StrSlice("deletedMessageIds")
	}
	for _, id := range deleted {
		if id == messageID {
			return nil
		}
	}
	deleted = append(deleted, messageID)
	err := s.store.Set(ctx, SettingsCollection(userID), chatID, map[string]any{
		"deletedMessageIds": deleted,
		"updatedAt":         store.ServerTimestamp,
	}, true)
	if err != nil {
		return fmt.Errorf("failed to delete message for user: %w", err)
	}
	return nil
}

// SetMuted stores the per-user mute flag for a chat.
func (s *Service) SetMuted(ctx context.Context, userID, chatID string, muted bool) error {
	err := s.store.Set(ctx, SettingsCollection(userID), chatID, map[string]any{
		"muted":     muted,
		"updatedAt": store.ServerTimestamp,
	}, true)
	if err != nil {
		return fmt.Errorf("failed to set mute: %w", err)
	}
	return nil
}

// Visible is the pure view predicate: a message is visible iff it was
// created after the clear cutoff (or no cutoff exists) and is not in the
// per-user deleted set.
func Visible(m chat.Message, st State) bool {
	if st.ClearedBefore != nil && !m.CreatedAt.After(*st.ClearedBefore) {
		return false
	}
	if _, gone := st.Deleted[m.ID]; gone {
		return false
	}
	return true
}

// Filter applies Visible over a snapshot, preserving order.
func Filter(msgs []chat.Message, st State) []chat.Message {
	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		if Visible(m, st) {
			out = append(out, m)
		}
	}
	return out
}
