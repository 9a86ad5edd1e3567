// Package reconcile holds the per-session orchestrator for one active chat
// view. It merges live message snapshots with optimistic local sends,
// applies the caller's visibility filter, detects genuinely new messages
// for notification side effects, and owns the whole subscription set so a
// chat switch can tear everything down atomically.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bakchod/internal/chat"
	"bakchod/internal/presence"
	"bakchod/internal/store"
	"bakchod/internal/visibility"
	"bakchod/pkg/apperr"
	"bakchod/pkg/logger"
)

// ChatRef names the conversation to enter: an existing chat id, or a peer
// to resolve a direct chat with.
type ChatRef struct {
	ChatID string
	Peer   chat.Participant
}

// Events receives reconciled view updates. Every callback carries the chat
// id so consumers can drop updates for a view they already left.
type Events interface {
	Messages(chatID string, msgs []chat.Message)
	ChatUpdated(c chat.Chat)
	Typing(chatID string, typists []presence.Typist)
	ReadState(chatID string, lastRead map[string]time.Time)
}

// NotificationSink receives novelty side effects. Sound is suppressed for
// muted chats; the celebration effect is visual and fires regardless.
type NotificationSink interface {
	MessageSound(chatID string, msg chat.Message)
	Celebration(chatID string, msg chat.Message)
}

type Options struct {
	// NoveltyWindow is the clock-skew allowance when comparing a
	// server-stamped createdAt against the local subscription start.
	NoveltyWindow time.Duration
	// CelebrationText is the exact message content that triggers the
	// celebration effect.
	CelebrationText string
	Clock           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.NoveltyWindow <= 0 {
		o.NoveltyWindow = 2 * time.Second
	}
	if o.CelebrationText == "" {
		o.CelebrationText = "🎉🎉🎉"
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

type Reconciler struct {
	chats    *chat.Service
	presence *presence.Tracker
	vis      *visibility.Service
	events   Events
	sink     NotificationSink
	log      logger.Logger
	opts     Options

	mu      sync.Mutex
	session *session
}

// session is the active subscription set plus the local state needed to
// reconcile snapshots: seen ids for novelty, optimistic rows awaiting their
// echo, and the caller's visibility filter.
type session struct {
	chatID      string
	userID      string
	displayName string
	startedAt   time.Time
	visState    visibility.State
	seen        map[string]struct{}
	sawSnapshot bool
	optimistic  []optimisticRow
	lastLive    []chat.Message
	unsubs      []store.Unsubscribe
}

type optimisticRow struct {
	msg    chat.Message
	sentAt time.Time
}

func New(chats *chat.Service, tracker *presence.Tracker, vis *visibility.Service, events Events, sink NotificationSink, log logger.Logger, opts Options) *Reconciler {
	return &Reconciler{
		chats:    chats,
		presence: tracker,
		vis:      vis,
		events:   events,
		sink:     sink,
		log:      log,
		opts:     opts.withDefaults(),
	}
}

// Enter resolves the chat, loads the caller's visibility state, establishes
// the live subscriptions (messages, chat document, typing) and marks the
// chat read. Entering while another chat is active tears the old session
// down first.
func (r *Reconciler) Enter(ctx context.Context, userID, displayName string, ref ChatRef) (chat.Chat, error) {
	if userID == "" {
		return chat.Chat{}, apperr.InvalidArg("user id is required")
	}
	r.Leave()

	var c chat.Chat
	var err error
	if ref.ChatID != "" {
		c, err = r.chats.Get(ctx, ref.ChatID)
	} else {
		c, err = r.chats.GetOrCreateDirect(ctx, chat.Participant{ID: userID, DisplayName: displayName}, ref.Peer)
	}
	if err != nil {
		return chat.Chat{}, err
	}

	visState, err := r.vis.Get(ctx, userID, c.ID)
	if err != nil {
		return chat.Chat{}, err
	}

	sess := &session{
		chatID:      c.ID,
		userID:      userID,
		displayName: displayName,
		startedAt:   r.opts.Clock(),
		visState:    visState,
		seen:        map[string]struct{}{},
	}
	r.mu.Lock()
	r.session = sess
	r.mu.Unlock()

	// Subscriptions are established outside the lock: stores may deliver
	// the initial snapshot synchronously, and those callbacks take the
	// lock themselves. Every callback checks the captured chat id, so a
	// concurrent switch just makes these no-ops.
	chatID := c.ID
	unsubs := []store.Unsubscribe{
		r.chats.Subscribe(chatID, func(msgs []chat.Message) {
			r.onMessages(chatID, msgs)
		}),
		r.chats.SubscribeChat(chatID, func(c chat.Chat) {
			if r.isActive(chatID) {
				r.events.ChatUpdated(c)
				r.events.ReadState(chatID, c.LastReadAt)
			}
		}),
		r.presence.SubscribeTyping(chatID, func(typists []presence.Typist) {
			if !r.isActive(chatID) {
				return
			}
			// The local user's own typing record is not an indicator.
			others := typists[:0]
			for _, ty := range typists {
				if ty.UserID != userID {
					others = append(others, ty)
				}
			}
			r.events.Typing(chatID, others)
		}),
	}

	r.mu.Lock()
	if r.session == sess {
		sess.unsubs = unsubs
		unsubs = nil
	}
	r.mu.Unlock()
	for _, u := range unsubs {
		// Lost the race with a switch; these belong to a dead session.
		u()
	}

	if err := r.markRead(ctx, chatID, userID); err != nil {
		r.log.Warn("mark read on enter failed", "chat", chatID, "err", err)
	}
	return c, nil
}

// Leave tears down the whole subscription set. Safe to call when no chat is
// active.
func (r *Reconciler) Leave() {
	r.mu.Lock()
	sess := r.session
	r.session = nil
	r.mu.Unlock()
	if sess == nil {
		return
	}
	for _, u := range sess.unsubs {
		u()
	}
}

// SwitchChat atomically replaces the active session with a new one.
func (r *Reconciler) SwitchChat(ctx context.Context, userID, displayName string, ref ChatRef) (chat.Chat, error) {
	return r.Enter(ctx, userID, displayName, ref)
}

// ActiveChatID reports the chat the reconciler is currently attached to.
func (r *Reconciler) ActiveChatID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return ""
	}
	return r.session.chatID
}

func (r *Reconciler) isActive(chatID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil && r.session.chatID == chatID
}

// Send appends a message through the optimistic path: a temporary local row
// is surfaced immediately and rolled back if the append fails. The echoed
// server row replaces the temporary one on the next snapshot.
func (r *Reconciler) Send(ctx context.Context, draft chat.Draft) (string, error) {
	r.mu.Lock()
	sess := r.session
	if sess == nil {
		r.mu.Unlock()
		return "", apperr.FailedPrecondition("no active chat")
	}
	chatID := sess.chatID
	now := r.opts.Clock()
	tempID := fmt.Sprintf("local-%d", now.UnixNano())
	kind := draft.Kind
	if kind == "" {
		kind = chat.MessageText
	}
	sess.optimistic = append(sess.optimistic, optimisticRow{
		msg: chat.Message{
			ID:                tempID,
			SenderID:          draft.SenderID,
			SenderDisplayName: draft.SenderDisplayName,
			Kind:              kind,
			Content:           draft.Content,
			MediaURL:          draft.MediaURL,
			ReplyTo:           draft.ReplyTo,
			CreatedAt:         now,
		},
		sentAt: now,
	})
	merged := sess.merged()
	r.mu.Unlock()
	r.events.Messages(chatID, merged)

	if err := r.presence.Stop(ctx, chatID, draft.SenderID); err != nil {
		r.log.Warn("typing clear on send failed", "chat", chatID, "err", err)
	}

	id, err := r.chats.Append(ctx, chatID, draft)
	if err != nil {
		// Roll back the optimistic row, but only if this chat is still
		// the active one. No retry: re-sending is the caller's call.
		r.mu.Lock()
		if r.session != nil && r.session.chatID == chatID {
			r.session.dropOptimistic(tempID)
			merged := r.session.merged()
			r.mu.Unlock()
			r.events.Messages(chatID, merged)
		} else {
			r.mu.Unlock()
		}
		return "", err
	}
	return id, nil
}

// Keystroke forwards typing activity for the active chat.
func (r *Reconciler) Keystroke(ctx context.Context) error {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()
	if sess == nil {
		return nil
	}
	return r.presence.Keystroke(ctx, sess.chatID, sess.userID, sess.displayName)
}

// MarkRead re-stamps the caller's read position for the active chat.
func (r *Reconciler) MarkRead(ctx context.Context) error {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()
	if sess == nil {
		return nil
	}
	return r.markRead(ctx, sess.chatID, sess.userID)
}

// markRead carries the chat id captured at call time, so a completion that
// lands after a chat switch is dropped instead of resurrecting receipt
// state for an inactive chat.
func (r *Reconciler) markRead(ctx context.Context, chatID, userID string) error {
	if !r.isActive(chatID) {
		return nil
	}
	return r.presence.MarkRead(ctx, chatID, userID)
}

// ClearForMe hides the active chat's history for the caller and re-renders
// the now-empty view without touching the shared log.
func (r *Reconciler) ClearForMe(ctx context.Context) error {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()
	if sess == nil {
		return apperr.FailedPrecondition("no active chat")
	}
	chatID, userID := sess.chatID, sess.userID
	if err := r.vis.ClearForMe(ctx, userID, chatID); err != nil {
		return err
	}
	return r.reloadVisibility(ctx, chatID, userID)
}

// DeleteForMe hides one message from the caller's view and re-renders.
func (r *Reconciler) DeleteForMe(ctx context.Context, messageID string) error {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()
	if sess == nil {
		return apperr.FailedPrecondition("no active chat")
	}
	chatID, userID := sess.chatID, sess.userID
	if err := r.vis.DeleteForMe(ctx, userID, chatID, messageID); err != nil {
		return err
	}
	return r.reloadVisibility(ctx, chatID, userID)
}

func (r *Reconciler) reloadVisibility(ctx context.Context, chatID, userID string) error {
	st, err := r.vis.Get(ctx, userID, chatID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	if r.session == nil || r.session.chatID != chatID {
		r.mu.Unlock()
		return nil
	}
	r.session.visState = st
	merged := r.session.merged()
	r.mu.Unlock()
	r.events.Messages(chatID, merged)
	return nil
}

// onMessages is the live-subscription entry point: de-duplicate against
// seen ids, retire superseded optimistic rows, filter for visibility, and
// fire notification side effects for the genuinely new.
func (r *Reconciler) onMessages(chatID string, msgs []chat.Message) {
	r.mu.Lock()
	sess := r.session
	if sess == nil || sess.chatID != chatID {
		r.mu.Unlock()
		return
	}

	var novel []chat.Message
	initial := !sess.sawSnapshot
	sess.sawSnapshot = true
	cutoff := sess.startedAt.Add(-r.opts.NoveltyWindow)
	for _, m := range msgs {
		if _, ok := sess.seen[m.ID]; ok {
			continue
		}
		sess.seen[m.ID] = struct{}{}
		if initial || m.SenderID == sess.userID || !m.CreatedAt.After(cutoff) {
			continue
		}
		novel = append(novel, m)
	}

	sess.retireOptimistic(msgs)
	sess.lastLive = msgs
	muted := sess.visState.Muted
	userID := sess.userID
	merged := sess.merged()
	r.mu.Unlock()

	r.events.Messages(chatID, merged)
	for _, m := range novel {
		if !muted {
			r.sink.MessageSound(chatID, m)
		}
		if m.Content == r.opts.CelebrationText {
			r.sink.Celebration(chatID, m)
		}
	}
	if len(novel) > 0 {
		// New messages arrived while the chat is open, so the read mark
		// moves forward. The captured chat id guards a late completion.
		if err := r.markRead(context.Background(), chatID, userID); err != nil {
			r.log.Warn("mark read on arrival failed", "chat", chatID, "err", err)
		}
	}
}

// merged is the reconciled view: the visibility-filtered live window with
// the still-pending optimistic rows appended.
func (s *session) merged() []chat.Message {
	out := visibility.Filter(s.lastLive, s.visState)
	for _, row := range s.optimistic {
		out = append(out, row.msg)
	}
	return out
}

func (s *session) dropOptimistic(tempID string) {
	kept := s.optimistic[:0]
	for _, row := range s.optimistic {
		if row.msg.ID != tempID {
			kept = append(kept, row)
		}
	}
	s.optimistic = kept
}

// retireOptimistic removes temporary rows once the live snapshot contains
// their server echo: a row from the same sender stamped at or after the
// send time. Ids are never force-merged; the snapshot naturally supersedes
// the placeholder.
func (s *session) retireOptimistic(live []chat.Message) {
	if len(s.optimistic) == 0 {
		return
	}
	kept := s.optimistic[:0]
	for _, row := range s.optimistic {
		echoed := false
		for _, m := range live {
			if m.SenderID == row.msg.SenderID && m.Content == row.msg.Content && !m.CreatedAt.Before(row.sentAt.Add(-time.Second)) {
				echoed = true
				break
			}
		}
		if !echoed {
			kept = append(kept, row)
		}
	}
	s.optimistic = kept
}
