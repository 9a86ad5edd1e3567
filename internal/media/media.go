// Package media stores chat attachments and avatars as blobs addressed by
// storage paths and served back by URL.
package media

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"bakchod/pkg/apperr"
)

// BlobStore persists an uploaded blob and returns its public URL.
type BlobStore interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SafeName strips characters that have no business in a storage path and
// caps the length at 80.
func SafeName(name string) string {
	if name == "" {
		name = "file"
	}
	safe := unsafeChars.ReplaceAllString(name, "_")
	if len(safe) > 80 {
		safe = safe[:80]
	}
	return safe
}

// ChatMediaPath builds the storage path for a chat attachment.
func ChatMediaPath(chatID, userID, name string) (string, error) {
	if chatID == "" || userID == "" {
		return "", apperr.InvalidArg("chat and user are required")
	}
	return fmt.Sprintf("chatMedia/%s/%s_%d_%s", chatID, userID, time.Now().UnixMilli(), SafeName(name)), nil
}

// AvatarPath builds the storage path for a profile or group avatar.
func AvatarPath(scope, ownerID, filename string) (string, error) {
	if ownerID == "" {
		return "", apperr.InvalidArg("owner is required")
	}
	ext := "jpg"
	if i := lastDot(filename); i >= 0 && i < len(filename)-1 {
		ext = SafeName(filename[i+1:])
	}
	return fmt.Sprintf("%s/%s/avatar_%d.%s", scope, ownerID, time.Now().UnixMilli(), ext), nil
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
