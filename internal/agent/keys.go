package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/caarlos0/go-shellwords"

	"github.com/dotcommander/airport/internal/config"
	"github.com/dotcommander/airport/internal/errs"
)

// ResolveKey returns the API key described by creds, falling back to the
// defaultEnv environment variable. docsURL is shown when no key is found.
func ResolveKey(ctx context.Context, creds config.Credentials, defaultEnv, docsURL string) (string, error) {
	return ensureKey(ctx, creds, defaultEnv, docsURL)
}

func ensureKey(ctx context.Context, creds config.Credentials, defaultEnv, docsURL string) (string, error) {
	key, err := lookupKey(ctx, creds)
	if err != nil {
		return "", err
	}
	if key == "" {
		key = os.Getenv(defaultEnv)
	}
	if key != "" {
		return key, nil
	}
	return "", errs.Error{
		Reason: fmt.Sprintf("%s required; set %s or update airport.yml through airport config edit.", defaultEnv, defaultEnv),
		Err:    errs.UserErrorf("You can grab one at %s", docsURL),
	}
}

// lookupKey resolves an inline key, then the named env var, then
// api-key-cmd. An empty result is not an error.
func lookupKey(ctx context.Context, creds config.Credentials) (string, error) {
	key := creds.APIKey
	if key == "" && creds.APIKeyEnv != "" && creds.APIKeyCmd == "" {
		key = os.Getenv(creds.APIKeyEnv)
	}
	if key == "" && creds.APIKeyCmd != "" {
		args, err := shellwords.Parse(creds.APIKeyCmd)
		if err != nil {
			return "", errs.Error{Err: err, Reason: "Failed to parse api-key-cmd"}
		}
		if len(args) == 0 {
			return "", errs.Error{Reason: "api-key-cmd is empty"}
		}
		// #nosec G204 -- api-key-cmd is explicitly configured by the local user.
		out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
		if err != nil {
			return "", errs.Error{Err: err, Reason: "Cannot exec api-key-cmd"}
		}
		key = strings.TrimSpace(string(out))
	}
	return key, nil
}
