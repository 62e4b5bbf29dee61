package agent

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"charm.land/fantasy"

	"github.com/dotcommander/airport/internal/airport"
	"github.com/dotcommander/airport/internal/errs"
)

// providerError gives fantasy provider failures a user-facing reason. The
// endpoint did answer in that case, so the result is also marked as
// airport.ErrUnusableReply. Other errors are returned unchanged.
func providerError(api string, err error) error {
	var providerErr *fantasy.ProviderError
	if !errors.As(err, &providerErr) {
		return err
	}
	return fmt.Errorf("%w: %w", airport.ErrUnusableReply, errs.Error{
		Err:    err,
		Reason: reasonForProviderError(api, providerErr),
	})
}

func reasonForProviderError(api string, err *fantasy.ProviderError) string {
	switch err.StatusCode {
	case http.StatusNotFound:
		return fmt.Sprintf("Missing model for API '%s'.", api)
	case http.StatusBadRequest:
		if isContextLengthExceeded(err) {
			return "Maximum prompt size exceeded."
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("%s rejected the API key.", api)
	}
	if reason := fantasy.ErrorTitleForStatusCode(err.StatusCode); reason != "" {
		return reason
	}
	return fmt.Sprintf("%s API request error.", api)
}

func isContextLengthExceeded(err *fantasy.ProviderError) bool {
	if strings.Contains(strings.ToLower(err.Message), "context_length_exceeded") {
		return true
	}
	return strings.Contains(strings.ToLower(string(err.ResponseBody)), "context_length_exceeded")
}
