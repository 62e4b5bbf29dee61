//go:build airport_small

package fantasybridge

import (
	"fmt"

	"charm.land/fantasy"
)

// In the small build only OpenAI-compatible endpoints (which include Gemini's
// compatibility endpoint) are linked in.
func newProvider(cfg Config) (fantasy.Provider, error) {
	provider, err := newOpenAICompat(cfg)
	if err != nil {
		return nil, fmt.Errorf("new fantasy openai-compatible provider: %w", err)
	}
	return provider, nil
}
