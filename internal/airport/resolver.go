package airport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/logging"
)

// minCodeLen is the shortest candidate accepted as an airport code.
const minCodeLen = 4

// ErrUnusableReply marks a completion failure where the endpoint answered
// but produced nothing usable (for example an HTTP error status). Resolver
// falls back to the query itself on such errors.
var ErrUnusableReply = errors.New("unusable completion")

// Completer sends a single prompt to a text-generation endpoint and returns
// the complete reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CodeResolver maps a free-text query to an airport code.
type CodeResolver interface {
	Resolve(ctx context.Context, query string) (string, error)
}

var _ CodeResolver = &Resolver{}

// Resolver asks a Completer for the best-guess ICAO code of a query.
//
// When the reply is unusable the upper-cased query is used instead. The
// result is not checked against any airport registry, so the fallback can
// yield a well-formed but wrong code.
type Resolver struct {
	completer Completer
	logger    *log.Logger
}

// NewResolver returns a Resolver using c. A nil logger discards output.
func NewResolver(c Completer, logger *log.Logger) *Resolver {
	return &Resolver{completer: c, logger: logging.OrDiscard(logger)}
}

// Resolve implements CodeResolver.
func (r *Resolver) Resolve(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", &errs.InputError{}
	}

	reply, err := r.completer.Complete(ctx, codePrompt(query))
	if err != nil && !errors.Is(err, ErrUnusableReply) {
		return "", fmt.Errorf("resolve %q: %w", query, err)
	}

	code := cleanCode(reply)
	if err != nil || code == "" {
		code = strings.ToUpper(query)
		r.logger.Warn("code resolution fell back to query", "query", query, "code", code, "err", err)
	}
	if utf8.RuneCountInString(code) < minCodeLen {
		return "", &errs.ResolutionError{Query: query, Candidate: code}
	}
	r.logger.Debug("resolved airport code", "query", query, "code", code)
	return code, nil
}

func codePrompt(query string) string {
	return fmt.Sprintf(`You are a helpful aviation assistant.
Convert the following airport name or city into its ICAO airport code (4 letters).
If unsure, give your best possible match (e.g., "Heathrow" → "EGLL", "Murtala Muhammed" → "DNMM").
Return only the code, nothing else.
Query: %q`, query)
}

func cleanCode(reply string) string {
	return strings.ToUpper(strings.Trim(strings.TrimSpace(reply), "\"'` \t\r\n"))
}
