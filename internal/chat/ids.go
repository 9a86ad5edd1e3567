package chat

import (
	"fmt"

	"bakchod/pkg/apperr"
)

const ChatsCollection = "chats"

// MessagesCollection is the per-chat message log path.
func MessagesCollection(chatID string) string {
	return ChatsCollection + "/" + chatID + "/messages"
}

// TypingCollection is the per-chat typing presence path.
func TypingCollection(chatID string) string {
	return ChatsCollection + "/" + chatID + "/typing"
}

// DirectChatID derives the deterministic chat document id for a user pair.
// Sorting the pair first makes the id order-independent, so two clients
// creating the "same" chat concurrently land on one document.
func DirectChatID(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", apperr.InvalidArg("both participant ids are required")
	}
	if a == b {
		return "", apperr.InvalidArg("cannot open a direct chat with yourself")
	}
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	return fmt.Sprintf("direct_%s_%s", lo, hi), nil
}
