package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/airport/internal/config"
	"github.com/dotcommander/airport/internal/errs"
)

func TestResolveKey(t *testing.T) {
	t.Run("inline key wins", func(t *testing.T) {
		t.Setenv("AIRPORT_TEST_KEY", "from-env")
		key, err := ResolveKey(context.Background(), config.Credentials{APIKey: "inline", APIKeyEnv: "AIRPORT_TEST_KEY"}, "AIRPORT_TEST_DEFAULT", "")
		require.NoError(t, err)
		require.Equal(t, "inline", key)
	})

	t.Run("named env", func(t *testing.T) {
		t.Setenv("AIRPORT_TEST_KEY", "from-env")
		key, err := ResolveKey(context.Background(), config.Credentials{APIKeyEnv: "AIRPORT_TEST_KEY"}, "AIRPORT_TEST_DEFAULT", "")
		require.NoError(t, err)
		require.Equal(t, "from-env", key)
	})

	t.Run("command", func(t *testing.T) {
		key, err := ResolveKey(context.Background(), config.Credentials{APIKeyCmd: "echo 'from cmd'"}, "AIRPORT_TEST_DEFAULT", "")
		require.NoError(t, err)
		require.Equal(t, "from cmd", key)
	})

	t.Run("default env", func(t *testing.T) {
		t.Setenv("AIRPORT_TEST_DEFAULT", "fallback")
		key, err := ResolveKey(context.Background(), config.Credentials{}, "AIRPORT_TEST_DEFAULT", "")
		require.NoError(t, err)
		require.Equal(t, "fallback", key)
	})

	t.Run("missing", func(t *testing.T) {
		t.Setenv("AIRPORT_TEST_DEFAULT", "")
		_, err := ResolveKey(context.Background(), config.Credentials{}, "AIRPORT_TEST_DEFAULT", "https://example.com/keys")
		require.Error(t, err)
		require.Equal(t,
			"AIRPORT_TEST_DEFAULT required; set AIRPORT_TEST_DEFAULT or update airport.yml through airport config edit.",
			errs.ReasonOf(err),
		)
		require.Contains(t, err.Error(), "https://example.com/keys")
	})

	t.Run("unparseable command", func(t *testing.T) {
		_, err := ResolveKey(context.Background(), config.Credentials{APIKeyCmd: "echo 'unterminated"}, "X", "")
		require.Equal(t, "Failed to parse api-key-cmd", errs.ReasonOf(err))
	})
}
