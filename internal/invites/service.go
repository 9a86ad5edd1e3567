// Package invites manages pending invitations: on-platform (by user id) and
// off-platform (by phone or email, with email delivery over SMTP).
package invites

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"bakchod/internal/store"
	"bakchod/pkg/apperr"
	"bakchod/pkg/logger"
)

const Collection = "invites"

type TargetType string

const (
	TargetUserID TargetType = "userId"
	TargetPhone  TargetType = "phone"
	TargetEmail  TargetType = "email"
)

type InviteStatus string

const (
	StatusPending  InviteStatus = "pending"
	StatusAccepted InviteStatus = "accepted"
	StatusDeclined InviteStatus = "declined"
)

type Invite struct {
	ID            string       `json:"id"`
	InviterUserID string       `json:"inviterUserId"`
	TargetType    TargetType   `json:"targetType"`
	TargetValue   string       `json:"targetValue"`
	Note          string       `json:"note,omitempty"`
	Status        InviteStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// Sender delivers an invite to an off-platform address.
type Sender interface {
	SendInvite(to, inviterName, note, joinURL string) error
}

type Service struct {
	store   store.Store
	sender  Sender
	joinURL string
	log     logger.Logger
}

func NewService(s store.Store, sender Sender, joinURL string, log logger.Logger) *Service {
	return &Service{store: s, sender: sender, joinURL: joinURL, log: log}
}

var phonePattern = regexp.MustCompile(`^[0-9+()\-\s]{6,20}$`)

type CreateInput struct {
	InviterUserID string
	InviterName   string
	TargetType    TargetType
	TargetValue   string
	Note          string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Invite, error) {
	if in.InviterUserID == "" {
		return Invite{}, apperr.InvalidArg("inviter is required")
	}
	if in.TargetValue == "" {
		return Invite{}, apperr.InvalidArg("invite target is required")
	}
	if in.TargetType == TargetPhone && !phonePattern.MatchString(in.TargetValue) {
		return Invite{}, apperr.InvalidArg("invalid phone number")
	}

	id, err := s.store.Add(ctx, Collection, map[string]any{
		"inviterUserId": in.InviterUserID,
		"targetType":    string(in.TargetType),
		"targetValue":   in.TargetValue,
		"note":          in.Note,
		"status":        string(StatusPending),
		"createdAt":     store.ServerTimestamp,
	})
	if err != nil {
		return Invite{}, fmt.Errorf("failed to create invite: %w", err)
	}

	if in.TargetType == TargetEmail && s.sender != nil {
		if err := s.sender.SendInvite(in.TargetValue, in.InviterName, in.Note, s.joinURL); err != nil {
			// The invite document exists either way; delivery is best-effort.
			s.log.Warn("invite email delivery failed", "invite", id, "err", err)
		}
	}
	return s.get(ctx, id)
}

func (s *Service) get(ctx context.Context, id string) (Invite, error) {
	doc, err := s.store.Get(ctx, Collection, id)
	if err != nil {
		return Invite{}, fmt.Errorf("failed to get invite %s: %w", id, err)
	}
	return inviteFromDoc(doc), nil
}

// ListPending returns pending invites addressed to a platform user, newest
// first.
func (s *Service) ListPending(ctx context.Context, userID string) ([]Invite, error) {
	docs, err := s.store.Query(ctx, Collection, store.Query{
		Filters: []store.Filter{
			{Field: "targetType", Op: "==", Value: string(TargetUserID)},
			{Field: "targetValue", Op: "==", Value: userID},
			{Field: "status", Op: "==", Value: string(StatusPending)},
		},
		OrderBy: "createdAt",
		Desc:    true,
		Limit:   100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	out := make([]Invite, 0, len(docs))
	for _, doc := range docs {
		out = append(out, inviteFromDoc(doc))
	}
	return out, nil
}

// Decide resolves a pending invite.
func (s *Service) Decide(ctx context.Context, inviteID string, accepted bool) error {
	status := StatusDeclined
	if accepted {
		status = StatusAccepted
	}
	err := s.store.Update(ctx, Collection, inviteID, map[string]any{
		"status": string(status),
	})
	if err != nil {
		return fmt.Errorf("failed to update invite: %w", err)
	}
	return nil
}

// Subscribe watches invites addressed to a user.
func (s *Service) Subscribe(userID string, fn func([]Invite)) store.Unsubscribe {
	return s.store.Subscribe(Collection, store.Query{
		Filters: []store.Filter{
			{Field: "targetType", Op: "==", Value: string(TargetUserID)},
			{Field: "targetValue", Op: "==", Value: userID},
		},
		Limit: 100,
	}, func(docs []store.Document) {
		out := make([]Invite, 0, len(docs))
		for _, doc := range docs {
			out = append(out, inviteFromDoc(doc))
		}
		fn(out)
	})
}

func inviteFromDoc(doc store.Document) Invite {
	inv := Invite{
		ID:            doc.ID,
		InviterUserID: doc.Str("inviterUserId"),
		TargetType:    TargetType(doc.Str("targetType")),
		TargetValue:   doc.Str("targetValue"),
		Note:          doc.Str("note"),
		Status:        InviteStatus(doc.Str("status")),
	}
	if ts, ok := doc.Time("createdAt"); ok {
		inv.CreatedAt = ts
	}
	return inv
}
