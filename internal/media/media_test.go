package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeName(t *testing.T) {
	t.Run("happy path - unsafe characters collapse to underscores", func(t *testing.T) {
		assert.Equal(t, "photo__1_.jpg", SafeName("photo (1).jpg"))
		assert.Equal(t, "caf__pic.png", SafeName("café pic.png"))
		assert.Equal(t, "a-b_c.d", SafeName("a-b_c.d"))
	})

	t.Run("happy path - empty name gets a placeholder", func(t *testing.T) {
		assert.Equal(t, "file", SafeName(""))
	})

	t.Run("happy path - long names are capped at 80", func(t *testing.T) {
		got := SafeName(strings.Repeat("x", 200) + ".jpg")
		assert.Len(t, got, 80)
	})
}

func TestChatMediaPath(t *testing.T) {
	t.Run("happy path - path carries chat, sender and sanitized name", func(t *testing.T) {
		got, err := ChatMediaPath("direct_alice_bob", "alice", "vacation pic.jpg")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "chatMedia/direct_alice_bob/alice_"))
		assert.True(t, strings.HasSuffix(got, "_vacation_pic.jpg"))
	})

	t.Run("sad path - missing chat or user", func(t *testing.T) {
		_, err := ChatMediaPath("", "alice", "a.jpg")
		assert.Error(t, err)
		_, err = ChatMediaPath("direct_alice_bob", "", "a.jpg")
		assert.Error(t, err)
	})
}

func TestAvatarPath(t *testing.T) {
	t.Run("happy path - extension comes from the filename", func(t *testing.T) {
		got, err := AvatarPath("profiles", "alice", "selfie.PNG")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "profiles/alice/avatar_"))
		assert.True(t, strings.HasSuffix(got, ".PNG"))
	})

	t.Run("happy path - extensionless filename defaults to jpg", func(t *testing.T) {
		got, err := AvatarPath("groups", "g1", "avatar")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(got, ".jpg"))
	})

	t.Run("sad path - missing owner", func(t *testing.T) {
		_, err := AvatarPath("profiles", "", "selfie.png")
		assert.Error(t, err)
	})
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path - upload writes the blob and returns its URL", func(t *testing.T) {
		dir := t.TempDir()
		ls, err := NewLocalStore(dir, "/media/")
		require.NoError(t, err)

		url, err := ls.Upload(ctx, "chatMedia/c1/alice_1_pic.jpg", strings.NewReader("jpeg bytes"), "image/jpeg")
		require.NoError(t, err)
		assert.Equal(t, "/media/chatMedia/c1/alice_1_pic.jpg", url)

		data, err := os.ReadFile(filepath.Join(dir, "chatMedia", "c1", "alice_1_pic.jpg"))
		require.NoError(t, err)
		assert.Equal(t, "jpeg bytes", string(data))
	})

	t.Run("happy path - traversal segments cannot escape the root", func(t *testing.T) {
		dir := t.TempDir()
		ls, err := NewLocalStore(dir, "/media")
		require.NoError(t, err)

		url, err := ls.Upload(ctx, "../../etc/passwd", strings.NewReader("nope"), "text/plain")
		require.NoError(t, err)
		assert.Equal(t, "/media/etc/passwd", url)

		_, err = os.Stat(filepath.Join(dir, "etc", "passwd"))
		assert.NoError(t, err, "the blob lands inside the media root")
	})

	t.Run("happy path - overwrite replaces the blob", func(t *testing.T) {
		dir := t.TempDir()
		ls, err := NewLocalStore(dir, "/media")
		require.NoError(t, err)

		_, err = ls.Upload(ctx, "a/b.txt", strings.NewReader("one"), "text/plain")
		require.NoError(t, err)
		_, err = ls.Upload(ctx, "a/b.txt", strings.NewReader("two"), "text/plain")
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "a", "b.txt"))
		require.NoError(t, err)
		assert.Equal(t, "two", string(data))
	})
}
