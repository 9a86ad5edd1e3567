package infrastructure

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakchod/pkg/logger"
)

func TestTimeOperation(t *testing.T) {
	t.Run("happy path - result passes through and the timing is logged", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.NewWithWriter(&buf, "info")

		err := TimeOperation(log, "noop", func() error { return nil })
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "noop")
	})

	t.Run("sad path - the operation's error comes back unchanged", func(t *testing.T) {
		boom := errors.New("boom")
		err := TimeOperation(logger.Nop(), "failing", func() error { return boom })
		assert.Equal(t, boom, err)
	})
}

func TestGenerateRandomString(t *testing.T) {
	t.Run("happy path - requested length from the url-safe charset", func(t *testing.T) {
		got := GenerateRandomString(16)
		require.Len(t, got, 16)
		for _, c := range got {
			assert.Contains(t, "abcdefghijklmnopqrstuvwxyz0123456789", string(c))
		}
	})
}
