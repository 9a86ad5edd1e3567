package chat

import (
	"time"

	"bakchod/internal/store"
)

type Kind string

const (
	KindDirect Kind = "direct"
	KindGroup  Kind = "group"
)

type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageImage MessageKind = "image"
	MessageVideo MessageKind = "video"
	MessageFile  MessageKind = "file"
	MessageAudio MessageKind = "audio"
	MessageRoast MessageKind = "roast"
)

// BotUserID is the reserved sender identity for roast messages.
const BotUserID = "bakchod-bot"

type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type Chat struct {
	ID              string               `json:"id"`
	Kind            Kind                 `json:"kind"`
	ParticipantIDs  []string             `json:"participantIds"`
	ParticipantData map[string]string    `json:"participantData"`
	OwnerID         string               `json:"ownerId"`
	AdminIDs        []string             `json:"adminIds"`
	UnreadCounts    map[string]int64     `json:"unreadCounts"`
	LastReadAt      map[string]time.Time `json:"lastReadAt"`
	LastMessage     string               `json:"lastMessage"`
	LastMessageAt   time.Time            `json:"lastMessageAt"`
	LastSenderID    string               `json:"lastSenderId"`
	AvatarURL       string               `json:"avatarUrl,omitempty"`
	Name            string               `json:"name,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

func (c Chat) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c Chat) IsAdmin(userID string) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ReplyRef snapshots the replied-to message so the reply stays readable
// even if the original is later removed.
type ReplyRef struct {
	MessageID         string `json:"messageId"`
	Content           string `json:"content"`
	SenderID          string `json:"senderId"`
	SenderDisplayName string `json:"senderDisplayName"`
}

type Message struct {
	ID                string            `json:"id"`
	SenderID          string            `json:"senderId"`
	SenderDisplayName string            `json:"senderDisplayName"`
	Kind              MessageKind       `json:"type"`
	Content           string            `json:"content"`
	MediaURL          string            `json:"mediaUrl,omitempty"`
	ReplyTo           *ReplyRef         `json:"replyTo,omitempty"`
	Reactions         map[string]string `json:"reactions,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// Draft is the client-supplied part of a message; ids and timestamps are
// assigned at write time.
type Draft struct {
	SenderID          string
	SenderDisplayName string
	Kind              MessageKind
	Content           string
	MediaURL          string
	ReplyTo           *ReplyRef
}

func chatFromDoc(doc store.Document) Chat {
	c := Chat{
		ID:              doc.ID,
		Kind:            Kind(doc.Str("kind")),
		ParticipantIDs:  doc.StrSlice("participantIds"),
		ParticipantData: map[string]string{},
		OwnerID:         doc.Str("ownerId"),
		AdminIDs:        doc.StrSlice("adminIds"),
		UnreadCounts:    doc.IntMap("unreadCounts"),
		LastReadAt:      doc.TimeMap("lastReadAt"),
		LastMessage:     doc.Str("lastMessage"),
		LastSenderID:    doc.Str("lastSender"),
		AvatarURL:       doc.Str("avatarUrl"),
		Name:            doc.Str("name"),
	}
	for uid, entry := range doc.Map("participantData") {
		if m, ok := entry.(map[string]any); ok {
			if name, ok := m["displayName"].(string); ok {
				c.ParticipantData[uid] = name
			}
		}
	}
	if ts, ok := doc.Time("lastMessageAt"); ok {
		c.LastMessageAt = ts
	}
	if ts, ok := doc.Time("createdAt"); ok {
		c.CreatedAt = ts
	}
	if ts, ok := doc.Time("updatedAt"); ok {
		c.UpdatedAt = ts
	}
	return c
}

func messageFromDoc(doc store.Document) Message {
	m := Message{
		ID:                doc.ID,
		SenderID:          doc.Str("senderId"),
		SenderDisplayName: doc.Str("senderDisplayName"),
		Kind:              MessageKind(doc.Str("type")),
		Content:           doc.Str("content"),
		MediaURL:          doc.Str("mediaUrl"),
		Reactions:         doc.StrMap("reactions"),
	}
	if m.Kind == "" {
		m.Kind = MessageText
	}
	if ts, ok := doc.Time("createdAt"); ok {
		m.CreatedAt = ts
	}
	if reply := doc.Map("replyTo"); reply != nil {
		ref := store.Document{Fields: reply}
		m.ReplyTo = &ReplyRef{
			MessageID:         ref.Str("messageId"),
			Content:           ref.Str("content"),
			SenderID:          ref.Str("senderId"),
			SenderDisplayName: ref.Str("senderDisplayName"),
		}
	}
	return m
}
