// Package presence tracks typing indicators and read receipts. Both are
// best-effort signals: dropped updates self-heal on the next keystroke or
// read, so there is no retry machinery here.
package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bakchod/internal/chat"
	"bakchod/internal/store"
	"bakchod/pkg/logger"
)

type Options struct {
	// TypingTTL is the staleness window subscribers apply to typing
	// records. The publish channel has no native expiry, so consumers
	// must filter by age themselves.
	TypingTTL time.Duration
	// IdleClear is how long after the last keystroke the typing state is
	// cleared automatically.
	IdleClear time.Duration
	// Clock is the local wall clock used for staleness comparison.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TypingTTL <= 0 {
		o.TypingTTL = 5 * time.Second
	}
	if o.IdleClear <= 0 {
		o.IdleClear = 3 * time.Second
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

type Typist struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	At          time.Time `json:"at"`
}

// Tracker publishes typing state with debounce and serves read receipts.
type Tracker struct {
	store store.Store
	log   logger.Logger
	opts  Options

	mu     sync.Mutex
	timers map[typistKey]*typistState
}

type typistKey struct {
	chatID string
	userID string
}

// typistState is the small idle → typing → idle machine per (chat, user),
// driven by one cancellable timer instead of ad hoc handle bookkeeping.
type typistState struct {
	typing      bool
	publishedAt time.Time
	timer       *time.Timer
}

func NewTracker(s store.Store, log logger.Logger, opts Options) *Tracker {
	return &Tracker{
		store:  s,
		log:    log,
		opts:   opts.withDefaults(),
		timers: map[typistKey]*typistState{},
	}
}

// Keystroke records typing activity: the first keystroke after idle
// publishes immediately, later ones just push the auto-clear deadline out.
// While typing continues the record is refreshed at half the staleness TTL
// so subscribers keep seeing it live without a write per keystroke.
func (t *Tracker) Keystroke(ctx context.Context, chatID, userID, displayName string) error {
	key := typistKey{chatID: chatID, userID: userID}
	now := t.opts.Clock()

	t.mu.Lock()
	state, ok := t.timers[key]
	if !ok {
		state = &typistState{}
		t.timers[key] = state
	}
	publish := !state.typing || now.Sub(state.publishedAt) >= t.opts.TypingTTL/2
	state.typing = true
	if publish {
		state.publishedAt = now
	}
	if state.timer != nil {
		state.timer.Stop()
	}
	state.timer = time.AfterFunc(t.opts.IdleClear, func() {
		t.clear(chatID, userID)
	})
	t.mu.Unlock()

	if !publish {
		return nil
	}
	return t.publish(ctx, chatID, userID, displayName)
}

// Stop clears typing state immediately, used on send.
func (t *Tracker) Stop(ctx context.Context, chatID, userID string) error {
	key := typistKey{chatID: chatID, userID: userID}
	t.mu.Lock()
	if state, ok := t.timers[key]; ok {
		if state.timer != nil {
			state.timer.Stop()
		}
		delete(t.timers, key)
	}
	t.mu.Unlock()
	return t.remove(ctx, chatID, userID)
}

func (t *Tracker) publish(ctx context.Context, chatID, userID, displayName string) error {
	err := t.store.Set(ctx, chat.TypingCollection(chatID), userID, map[string]any{
		"displayName": displayName,
		"at":          store.ServerTimestamp,
	}, true)
	if err != nil {
		return fmt.Errorf("failed to publish typing state: %w", err)
	}
	return nil
}

func (t *Tracker) clear(chatID, userID string) {
	t.mu.Lock()
	delete(t.timers, typistKey{chatID: chatID, userID: userID})
	t.mu.Unlock()
	if err := t.remove(context.Background(), chatID, userID); err != nil {
		t.log.Warn("typing auto-clear failed", "chat", chatID, "err", err)
	}
}

func (t *Tracker) remove(ctx context.Context, chatID, userID string) error {
	err := t.store.Delete(ctx, chat.TypingCollection(chatID), userID)
	if err != nil {
		return fmt.Errorf("failed to clear typing state: %w", err)
	}
	return nil
}

// SubscribeTyping watches a chat's typists. Records older than the TTL are
// treated as absent even when they still physically exist.
func (t *Tracker) SubscribeTyping(chatID string, fn func([]Typist)) store.Unsubscribe {
	return t.store.Subscribe(chat.TypingCollection(chatID), store.Query{}, func(docs []store.Document) {
		now := t.opts.Clock()
		var typists []Typist
		for _, doc := range docs {
			at, ok := doc.Time("at")
			if !ok || now.Sub(at) >= t.opts.TypingTTL {
				continue
			}
			typists = append(typists, Typist{
				UserID:      doc.ID,
				DisplayName: doc.Str("displayName"),
				At:          at,
			})
		}
		fn(typists)
	})
}
