package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(&buf, "warn")
		require.NoError(t, err)

		logger.Info("stage started", "stage", "resolve-airport")
		require.Empty(t, buf.String())

		logger.Warn("fallback code", "code", "HEATHROW")
		require.Contains(t, buf.String(), "fallback code")
		require.Contains(t, buf.String(), "code=HEATHROW")
	})

	t.Run("empty level uses default", func(t *testing.T) {
		logger, err := New(&bytes.Buffer{}, "")
		require.NoError(t, err)
		require.NotNil(t, logger)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New(&bytes.Buffer{}, "loud")
		require.Error(t, err)
	})
}

func TestOrDiscard(t *testing.T) {
	require.NotNil(t, OrDiscard(nil))
}
