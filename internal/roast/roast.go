// Package roast wraps the external roast-generation text service with a
// deterministic offline fallback, and posts the result into a chat as the
// reserved bot identity.
package roast

import (
	"context"
	"encoding/binary"
	"strings"

	"golang.org/x/crypto/blake2b"

	"bakchod/internal/chat"
	"bakchod/pkg/apperr"
	"bakchod/pkg/logger"
)

// Generator is the text-in/text-out collaborator. Implementations talk to
// the hosted generation function; failures fall back locally.
type Generator interface {
	Generate(ctx context.Context, promptContext string) (string, error)
}

// fallbacks are served when the generator fails; selection is a pure hash
// of the prompt context, so the same input always yields the same roast.
var fallbacks = []string{
	"Bro, even your Wi‑Fi buffers with you. 📶💀",
	"Scene set hai, but tu offline hi lagta hai. 😎📵",
	"Your vibe is on airplane mode, beta. ✈️😶",
	"Itni bakchodi? CPU bhi garam ho gaya. 🔥🖥️",
	"Tu late night legend nahi, late night loading hai. ⏳😂",
	"Roast nahi, full fry mode activated. 🍳😈",
	"Tera swag low battery pe hai. 🔋😅",
	"Bhai, tera status: buffering... 😂",
	"Influencer nahi, inbox sufferer. 📥💔",
	"Hinglish me kahu? Beta, chill kar. 🧊😏",
}

// Fallback picks the offline roast for a prompt context.
func Fallback(promptContext string) string {
	sum := blake2b.Sum256([]byte(promptContext))
	seed := binary.BigEndian.Uint64(sum[:8])
	return fallbacks[seed%uint64(len(fallbacks))]
}

type Service struct {
	generator Generator
	chats     *chat.Service
	log       logger.Logger
}

func NewService(g Generator, chats *chat.Service, log logger.Logger) *Service {
	return &Service{generator: g, chats: chats, log: log}
}

// Generate returns roast text for a topic, falling back deterministically
// when the external service fails or returns nothing.
func (s *Service) Generate(ctx context.Context, topic string) string {
	if s.generator == nil {
		return Fallback(topic)
	}
	text, err := s.generator.Generate(ctx, topic)
	if err != nil {
		s.log.Warn("roast generation failed, using fallback", "err", err)
		return Fallback(topic)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback(topic)
	}
	return text
}

// Roast generates and appends a bot-authored roast message to a chat.
func (s *Service) Roast(ctx context.Context, chatID, topic string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", apperr.InvalidArg("roast topic is required")
	}
	text := s.Generate(ctx, topic)
	_, err := s.chats.Append(ctx, chatID, chat.Draft{
		SenderID:          chat.BotUserID,
		SenderDisplayName: "ECSTASY BOT",
		Kind:              chat.MessageRoast,
		Content:           text,
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
