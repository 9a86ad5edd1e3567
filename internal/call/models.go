package call

import (
	"time"

	"bakchod/internal/store"
)

const Collection = "calls"

type Status string

const (
	StatusRinging   Status = "ringing"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
	StatusEnded     Status = "ended"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDeclined, StatusCancelled, StatusEnded:
		return true
	default:
		return false
	}
}

// allowed transitions; everything else is rejected or a terminal no-op.
var transitions = map[Status][]Status{
	StatusRinging:  {StatusAccepted, StatusDeclined, StatusCancelled},
	StatusAccepted: {StatusEnded},
}

func canTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Mode string

const (
	ModeAudio Mode = "audio"
	ModeVideo Mode = "video"
)

type Invitation struct {
	ID              string    `json:"id"`
	FromUserID      string    `json:"fromUserId"`
	FromDisplayName string    `json:"fromDisplayName"`
	TargetIDs       []string  `json:"targetParticipantIds"`
	TargetChatID    string    `json:"targetChatId,omitempty"`
	Mode            Mode      `json:"mode"`
	Status          Status    `json:"status"`
	RoomName        string    `json:"roomName"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Ref is what a caller needs to hand the conferencing widget.
type Ref struct {
	CallID   string `json:"callId"`
	RoomName string `json:"roomName"`
}

func invitationFromDoc(doc store.Document) Invitation {
	inv := Invitation{
		ID:              doc.ID,
		FromUserID:      doc.Str("fromUserId"),
		FromDisplayName: doc.Str("fromDisplayName"),
		TargetIDs:       doc.StrSlice("targetParticipantIds"),
		TargetChatID:    doc.Str("targetChatId"),
		Mode:            Mode(doc.Str("mode")),
		Status:          Status(doc.Str("status")),
		RoomName:        doc.Str("roomName"),
	}
	if ts, ok := doc.Time("createdAt"); ok {
		inv.CreatedAt = ts
	}
	if ts, ok := doc.Time("updatedAt"); ok {
		inv.UpdatedAt = ts
	}
	return inv
}
