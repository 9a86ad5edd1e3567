// Package call implements the call-invitation lifecycle shared between
// caller and callees. Only the ringing/resolved handshake lives here; media
// transport belongs to the external conferencing widget, which receives the
// generated room name and nothing else.
package call

import (
	"context"
	"fmt"
	"time"

	"bakchod/infrastructure"
	"bakchod/internal/chat"
	"bakchod/internal/store"
	"bakchod/pkg/apperr"
	"bakchod/pkg/logger"
)

type Service struct {
	store store.Store
	chats *chat.Service
	log   logger.Logger
}

func NewService(s store.Store, chats *chat.Service, log logger.Logger) *Service {
	return &Service{store: s, chats: chats, log: log}
}

// CreateInput describes a new call attempt. For a group call TargetChatID
// is set and the ringer set is derived from current membership minus the
// caller; later membership changes do not add ringers retroactively.
type CreateInput struct {
	FromUserID      string
	FromDisplayName string
	TargetIDs       []string
	TargetChatID    string
	Mode            Mode
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Ref, error) {
	if in.FromUserID == "" {
		return Ref{}, apperr.InvalidArg("caller id is required")
	}
	targets := in.TargetIDs
	if in.TargetChatID != "" {
		group, err := s.chats.Get(ctx, in.TargetChatID)
		if err != nil {
			return Ref{}, err
		}
		targets = make([]string, 0, len(group.ParticipantIDs))
		for _, id := range group.ParticipantIDs {
			if id != in.FromUserID {
				targets = append(targets, id)
			}
		}
	}
	if len(targets) == 0 {
		return Ref{}, apperr.InvalidArg("call needs at least one target participant")
	}
	mode := in.Mode
	if mode == "" {
		mode = ModeVideo
	}
	displayName := in.FromDisplayName
	if displayName == "" {
		displayName = "Someone"
	}

	roomName := newRoomName()
	fields := map[string]any{
		"fromUserId":           in.FromUserID,
		"fromDisplayName":      displayName,
		"targetParticipantIds": targets,
		"mode":                 string(mode),
		"status":               string(StatusRinging),
		"roomName":             roomName,
		"createdAt":            store.ServerTimestamp,
		"updatedAt":            store.ServerTimestamp,
	}
	if in.TargetChatID != "" {
		fields["targetChatId"] = in.TargetChatID
	}
	id, err := s.store.Add(ctx, Collection, fields)
	if err != nil {
		return Ref{}, fmt.Errorf("failed to create call: %w", err)
	}
	s.log.Info("call created", "call", id, "room", roomName, "targets", len(targets))
	return Ref{CallID: id, RoomName: roomName}, nil
}

// newRoomName builds the opaque conference room token: creation time plus
// a random suffix. Immutable for the life of the call.
func newRoomName() string {
	return fmt.Sprintf("bakchod-%d-%s", time.Now().UnixMilli(), infrastructure.GenerateRandomString(8))
}

// UpdateStatus advances the call lifecycle. Updates on a call already in a
// terminal state are silent no-ops; the other party's client may have
// resolved it first, and that is not an error. Invalid non-terminal
// transitions are rejected.
func (s *Service) UpdateStatus(ctx context.Context, callID string, next Status) (Invitation, error) {
	doc, err := s.store.Get(ctx, Collection, callID)
	if err != nil {
		return Invitation{}, fmt.Errorf("failed to get call %s: %w", callID, err)
	}
	inv := invitationFromDoc(doc)
	if inv.Status.Terminal() || inv.Status == next {
		return inv, nil
	}
	if !canTransition(inv.Status, next) {
		return Invitation{}, apperr.FailedPrecondition(
			fmt.Sprintf("call cannot go from %s to %s", inv.Status, next))
	}
	err = s.store.Update(ctx, Collection, callID, map[string]any{
		"status":    string(next),
		"updatedAt": store.ServerTimestamp,
	})
	if err != nil {
		return Invitation{}, fmt.Errorf("failed to update call status: %w", err)
	}
	inv.Status = next
	return inv, nil
}

func (s *Service) Get(ctx context.Context, callID string) (Invitation, error) {
	doc, err := s.store.Get(ctx, Collection, callID)
	if err != nil {
		return Invitation{}, fmt.Errorf("failed to get call %s: %w", callID, err)
	}
	return invitationFromDoc(doc), nil
}

// SubscribeStatus watches one call, letting the caller observe
// accept/decline.
func (s *Service) SubscribeStatus(callID string, fn func(Invitation)) store.Unsubscribe {
	return s.store.Subscribe(Collection, store.Query{DocID: callID}, func(docs []store.Document) {
		for _, doc := range docs {
			fn(invitationFromDoc(doc))
		}
	})
}

// SubscribeIncoming watches a user's ringing calls. Calls the user created
// are outgoing and never reported here, even though the broad query can
// return them.
func (s *Service) SubscribeIncoming(userID string, fn func([]Invitation)) store.Unsubscribe {
	return s.store.Subscribe(Collection, store.Query{
		Filters: []store.Filter{{Field: "targetParticipantIds", Op: "array-contains", Value: userID}},
		Limit:   10,
	}, func(docs []store.Document) {
		var ringing []Invitation
		for _, doc := range docs {
			inv := invitationFromDoc(doc)
			if inv.Status == StatusRinging && inv.FromUserID != userID {
				ringing = append(ringing, inv)
			}
		}
		fn(ringing)
	})
}
