package airport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/logging"
	"github.com/dotcommander/airport/internal/stream"
)

// DefaultNarrativeTimeout bounds how long a narrative stream may take.
const DefaultNarrativeTimeout = 2 * time.Minute

// errNarrativeDeadline is the cause recorded when the narrative timeout fires.
var errNarrativeDeadline = errors.New("narrative deadline")

// DefaultAgentName is the name the narrative agent is registered under.
const DefaultAgentName = "airportInfoAgent"

// Agent is a conversational capability that answers a prompt with a stream
// of text fragments.
type Agent interface {
	Stream(ctx context.Context, prompt string) (stream.Stream, error)
}

// AgentRegistry looks up agents by name.
type AgentRegistry interface {
	Agent(name string) (Agent, bool)
}

// Narrator turns a canonical record into a free-form narrative.
type Narrator struct {
	registry AgentRegistry
	name     string
	timeout  time.Duration
	logger   *log.Logger
}

// NarratorOption customizes a Narrator.
type NarratorOption func(*Narrator)

// WithAgentName sets the registered agent to use.
func WithAgentName(name string) NarratorOption {
	return func(n *Narrator) {
		if name != "" {
			n.name = name
		}
	}
}

// WithNarrativeTimeout bounds the whole stream. Zero or negative disables
// the bound; the caller's context still applies.
func WithNarrativeTimeout(d time.Duration) NarratorOption {
	return func(n *Narrator) { n.timeout = d }
}

// WithNarratorLogger sets the logger.
func WithNarratorLogger(l *log.Logger) NarratorOption {
	return func(n *Narrator) { n.logger = logging.OrDiscard(l) }
}

// NewNarrator returns a Narrator backed by registry.
func NewNarrator(registry AgentRegistry, opts ...NarratorOption) *Narrator {
	n := &Narrator{
		registry: registry,
		name:     DefaultAgentName,
		timeout:  DefaultNarrativeTimeout,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Narrate streams a narrative for rec and returns it once the stream is
// exhausted. onFragment, when non-nil, sees every fragment in arrival
// order. A stream that does not finish within the timeout is closed and
// reported as a TimeoutError; partial text is never returned.
func (n *Narrator) Narrate(ctx context.Context, rec Record, onFragment func(string)) (string, error) {
	if n == nil || n.registry == nil {
		return "", &errs.AgentUnavailableError{Name: DefaultAgentName}
	}
	agent, ok := n.registry.Agent(n.name)
	if !ok {
		return "", &errs.AgentUnavailableError{Name: n.name}
	}

	prompt, err := narrativePrompt(rec)
	if err != nil {
		return "", err
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, n.timeout, errNarrativeDeadline)
		defer cancel()
	}

	s, err := agent.Stream(ctx, prompt)
	if err != nil {
		return "", n.mapErr(ctx, err)
	}
	text, err := stream.Collect(ctx, s, onFragment)
	for _, w := range s.DrainWarnings() {
		n.logger.Warn("narrative stream warning", "agent", n.name, "warning", w)
	}
	if err != nil {
		return "", n.mapErr(ctx, err)
	}
	return text, nil
}

func (n *Narrator) mapErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		tErr := &errs.TimeoutError{Op: "narrative", Err: err}
		// The caller's own deadline may have fired first.
		if errors.Is(context.Cause(ctx), errNarrativeDeadline) {
			tErr.After = n.timeout
		}
		return tErr
	}
	return fmt.Errorf("narrative: %w", err)
}

func narrativePrompt(rec Record) (string, error) {
	bts, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	return fmt.Sprintf(`Summarize this airport information clearly and professionally:
%s

Include:
- Full name
- City and country
- IATA and ICAO codes
- Timezone
- Latitude/Longitude (approximate)
- Short description of its importance or usage type (e.g., international hub, regional airport, etc.)`, bts), nil
}
