package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bakchod/internal/store"
	"bakchod/pkg/apperr"
	"bakchod/pkg/logger"
)

// DefaultHistoryLimit bounds the live message window per chat.
const DefaultHistoryLimit = 200

// Service is the message store adapter: chat resolution, atomic appends,
// bounded history, reactions and group membership policy over the Store.
type Service struct {
	store store.Store
	log   logger.Logger
}

func NewService(s store.Store, log logger.Logger) *Service {
	return &Service{store: s, log: log}
}

// GetOrCreateDirect resolves (or creates) the direct chat between two
// users. The id is computed client-side, so the merge write is idempotent
// and concurrent first-message sends from either side cannot produce
// duplicate documents.
func (s *Service) GetOrCreateDirect(ctx context.Context, me, peer Participant) (Chat, error) {
	id, err := DirectChatID(me.ID, peer.ID)
	if err != nil {
		return Chat{}, err
	}

	fields := map[string]any{
		"kind":           string(KindDirect),
		"participantIds": []string{min(me.ID, peer.ID), max(me.ID, peer.ID)},
		"participantData": map[string]any{
			me.ID:   map[string]any{"displayName": me.DisplayName},
			peer.ID: map[string]any{"displayName": peer.DisplayName},
		},
		"updatedAt": store.ServerTimestamp,
	}
	if _, err := s.store.Get(ctx, ChatsCollection, id); err != nil {
		fields["ownerId"] = me.ID
		fields["createdAt"] = store.ServerTimestamp
	}
	if err := s.store.Set(ctx, ChatsCollection, id, fields, true); err != nil {
		return Chat{}, fmt.Errorf("failed to upsert direct chat: %w", err)
	}
	return s.Get(ctx, id)
}

// CreateGroup creates a tribe. The owner is always a member and an admin.
func (s *Service) CreateGroup(ctx context.Context, owner Participant, name string, members []Participant) (Chat, error) {
	if name == "" {
		return Chat{}, apperr.InvalidArg("group name is required")
	}
	ids := []string{owner.ID}
	data := map[string]any{owner.ID: map[string]any{"displayName": owner.DisplayName}}
	for _, m := range members {
		if m.ID == owner.ID || m.ID == "" {
			continue
		}
		if _, dup := data[m.ID]; dup {
			continue
		}
		ids = append(ids, m.ID)
		data[m.ID] = map[string]any{"displayName": m.DisplayName}
	}

	id, err := s.store.Add(ctx, ChatsCollection, map[string]any{
		"kind":            string(KindGroup),
		"name":            name,
		"ownerId":         owner.ID,
		"adminIds":        []string{owner.ID},
		"participantIds":  ids,
		"participantData": data,
		"createdAt":       store.ServerTimestamp,
		"updatedAt":       store.ServerTimestamp,
	})
	if err != nil {
		return Chat{}, fmt.Errorf("failed to create group chat: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, chatID string) (Chat, error) {
	doc, err := s.store.Get(ctx, ChatsCollection, chatID)
	if err != nil {
		return Chat{}, fmt.Errorf("failed to get chat %s: %w", chatID, err)
	}
	return chatFromDoc(doc), nil
}

// Append writes a message and, in the same atomic batch, updates the
// chat's last-message preview and bumps the unread counter of every
// participant except the sender. A successful send can never leave those
// out of sync.
func (s *Service) Append(ctx context.Context, chatID string, draft Draft) (string, error) {
	if draft.SenderID == "" {
		return "", apperr.InvalidArg("sender is required")
	}
	if draft.Content == "" && draft.MediaURL == "" {
		return "", apperr.InvalidArg("message content is required")
	}
	chat, err := s.Get(ctx, chatID)
	if err != nil {
		return "", err
	}
	if draft.SenderID != BotUserID && !chat.HasParticipant(draft.SenderID) {
		return "", apperr.Forbidden("sender is not a participant of this chat")
	}

	kind := draft.Kind
	if kind == "" {
		kind = MessageText
	}
	messageID := uuid.NewString()
	msgFields := map[string]any{
		"senderId":          draft.SenderID,
		"senderDisplayName": draft.SenderDisplayName,
		"type":              string(kind),
		"content":           draft.Content,
		"createdAt":         store.ServerTimestamp,
	}
	if draft.MediaURL != "" {
		msgFields["mediaUrl"] = draft.MediaURL
	}
	if draft.ReplyTo != nil {
		msgFields["replyTo"] = map[string]any{
			"messageId":         draft.ReplyTo.MessageID,
			"content":           draft.ReplyTo.Content,
			"senderId":          draft.ReplyTo.SenderID,
			"senderDisplayName": draft.ReplyTo.SenderDisplayName,
		}
	}

	chatUpdate := map[string]any{
		"lastMessage":   draft.Content,
		"lastMessageAt": store.ServerTimestamp,
		"lastSender":    draft.SenderID,
		"updatedAt":     store.ServerTimestamp,
	}
	for _, uid := range chat.ParticipantIDs {
		if uid != "" && uid != draft.SenderID {
			chatUpdate["unreadCounts."+uid] = store.Inc(1)
		}
	}

	err = s.store.RunBatch(ctx, []store.Op{
		{Kind: store.OpSet, Collection: MessagesCollection(chatID), ID: messageID, Fields: msgFields},
		{Kind: store.OpUpdate, Collection: ChatsCollection, ID: chatID, Fields: chatUpdate},
	})
	if err != nil {
		s.log.Error("message append failed", "chat", chatID, "err", err)
		return "", fmt.Errorf("failed to append message: %w", err)
	}
	return messageID, nil
}

// History returns the most recent limit messages in ascending order.
func (s *Service) History(ctx context.Context, chatID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	docs, err := s.store.Query(ctx, MessagesCollection(chatID), store.Query{
		OrderBy: "createdAt",
		Desc:    true,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return messagesAscending(docs), nil
}

// Subscribe delivers the full live window, ascending, on every change.
func (s *Service) Subscribe(chatID string, fn func([]Message)) store.Unsubscribe {
	return s.store.Subscribe(MessagesCollection(chatID), store.Query{
		OrderBy: "createdAt",
		Desc:    true,
		Limit:   DefaultHistoryLimit,
	}, func(docs []store.Document) {
		fn(messagesAscending(docs))
	})
}

// SubscribeChat watches the chat document itself (read receipts, unread
// counts, membership).
func (s *Service) SubscribeChat(chatID string, fn func(Chat)) store.Unsubscribe {
	return s.store.Subscribe(ChatsCollection, store.Query{DocID: chatID}, func(docs []store.Document) {
		for _, doc := range docs {
			fn(chatFromDoc(doc))
		}
	})
}

// SubscribeUserChats watches the user's conversations, most recent first.
func (s *Service) SubscribeUserChats(userID string, fn func([]Chat)) store.Unsubscribe {
	return s.store.Subscribe(ChatsCollection, store.Query{
		Filters: []store.Filter{{Field: "participantIds", Op: "array-contains", Value: userID}},
		OrderBy: "updatedAt",
		Desc:    true,
		Limit:   100,
	}, func(docs []store.Document) {
		chats := make([]Chat, 0, len(docs))
		for _, doc := range docs {
			chats = append(chats, chatFromDoc(doc))
		}
		fn(chats)
	})
}

// DeleteForEveryone removes a message from the shared log permanently.
// Roast messages are informational and stay out of the human delete path.
func (s *Service) DeleteForEveryone(ctx context.Context, chatID, messageID string) error {
	doc, err := s.store.Get(ctx, MessagesCollection(chatID), messageID)
	if err != nil {
		return fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	if MessageKind(doc.Str("type")) == MessageRoast {
		return apperr.FailedPrecondition("roast messages cannot be deleted for everyone")
	}
	if err := s.store.Delete(ctx, MessagesCollection(chatID), messageID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// SetReaction replaces the user's reaction on a message; empty emoji
// removes it. Last write per participant wins.
func (s *Service) SetReaction(ctx context.Context, chatID, messageID, userID, emoji string) error {
	if userID == "" {
		return apperr.InvalidArg("user id is required")
	}
	var value any = emoji
	if emoji == "" {
		value = nil
	}
	err := s.store.Update(ctx, MessagesCollection(chatID), messageID, map[string]any{
		"reactions." + userID: value,
	})
	if err != nil {
		return fmt.Errorf("failed to set reaction: %w", err)
	}
	return nil
}

// AddMembers adds users to a group chat. Admin-gated.
func (s *Service) AddMembers(ctx context.Context, chatID, callerID string, members []Participant) error {
	chat, err := s.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.Kind != KindGroup {
		return apperr.FailedPrecondition("membership changes only apply to group chats")
	}
	if !chat.IsAdmin(callerID) {
		return apperr.Forbidden("only admins can add members")
	}

	ids := chat.ParticipantIDs
	data := map[string]any{}
	for _, m := range members {
		if m.ID == "" || chat.HasParticipant(m.ID) {
			continue
		}
		ids = append(ids, m.ID)
		data[m.ID] = map[string]any{"displayName": m.DisplayName}
	}
	update := map[string]any{
		"participantIds": ids,
		"updatedAt":      store.ServerTimestamp,
	}
	for uid, entry := range data {
		update["participantData."+uid] = entry
	}
	if err := s.store.Update(ctx, ChatsCollection, chatID, update); err != nil {
		return fmt.Errorf("failed to add members: %w", err)
	}
	return nil
}

// RemoveMember removes a user from a group chat. Admin-gated; the owner
// can never be removed.
func (s *Service) RemoveMember(ctx context.Context, chatID, callerID, memberID string) error {
	chat, err := s.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.Kind != KindGroup {
		return apperr.FailedPrecondition("membership changes only apply to group chats")
	}
	if !chat.IsAdmin(callerID) {
		return apperr.Forbidden("only admins can remove members")
	}
	if memberID == chat.OwnerID {
		return apperr.Forbidden("cannot remove the group creator")
	}

	ids := make([]string, 0, len(chat.ParticipantIDs))
	for _, id := range chat.ParticipantIDs {
		if id != memberID {
			ids = append(ids, id)
		}
	}
	admins := make([]string, 0, len(chat.AdminIDs))
	for _, id := range chat.AdminIDs {
		if id != memberID {
			admins = append(admins, id)
		}
	}
	err = s.store.Update(ctx, ChatsCollection, chatID, map[string]any{
		"participantIds":               ids,
		"adminIds":                     admins,
		"participantData." + memberID: nil,
		"updatedAt":                    store.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// SetAdmin promotes or demotes a member. Promotion is admin-gated;
// demotion is owner-only, and the owner can never be demoted.
func (s *Service) SetAdmin(ctx context.Context, chatID, callerID, targetID string, makeAdmin bool) error {
	chat, err := s.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.Kind != KindGroup {
		return apperr.FailedPrecondition("admin changes only apply to group chats")
	}
	if !chat.HasParticipant(targetID) {
		return apperr.InvalidArg("user is not in this group")
	}
	if !chat.IsAdmin(callerID) {
		return apperr.Forbidden("only admins can change admin status")
	}

	admins := append([]string{}, chat.AdminIDs...)
	if makeAdmin {
		if !chat.IsAdmin(targetID) {
			admins = append(admins, targetID)
		}
	} else {
		if targetID == chat.OwnerID {
			return apperr.Forbidden("cannot demote the group creator")
		}
		if callerID != chat.OwnerID {
			return apperr.Forbidden("only the group creator can demote admins")
		}
		kept := admins[:0]
		for _, id := range admins {
			if id != targetID {
				kept = append(kept, id)
			}
		}
		admins = kept
	}
	err = s.store.Update(ctx, ChatsCollection, chatID, map[string]any{
		"adminIds":  admins,
		"updatedAt": store.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to update admins: %w", err)
	}
	return nil
}

func messagesAscending(docs []store.Document) []Message {
	out := make([]Message, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		out = append(out, messageFromDoc(docs[i]))
	}
	return out
}
