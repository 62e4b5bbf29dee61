package airport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/logging"
)

// DefaultRequestTimeout bounds a single provider call when the caller does
// not supply an http.Client of its own.
const DefaultRequestTimeout = 30 * time.Second

// maxBodySize caps how much of a provider response is read.
const maxBodySize = 4 << 20

// ProviderConfig configures an airport data provider client.
type ProviderConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *log.Logger
}

type httpProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *log.Logger
}

func newHTTPProvider(name, defaultURL string, cfg ProviderConfig) httpProvider {
	base := cfg.BaseURL
	if base == "" {
		base = defaultURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultRequestTimeout}
	}
	return httpProvider{
		name:    name,
		baseURL: base,
		apiKey:  cfg.APIKey,
		client:  client,
		logger:  logging.OrDiscard(cfg.Logger),
	}
}

// get performs the request and returns the status and body. A non-2xx
// status is not an error here; callers build the ProviderError they need.
func (p httpProvider) get(ctx context.Context, u string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%s request: %w", p.name, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, p.callError(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, p.callError(err)
	}
	p.logger.Debug("provider call", "provider", p.name, "status", resp.StatusCode, "took", time.Since(start))
	return resp.StatusCode, body, nil
}

func (p httpProvider) callError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &errs.TimeoutError{Op: p.name + " request", After: p.client.Timeout, Err: err}
	}
	return fmt.Errorf("%s request: %w", p.name, err)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
