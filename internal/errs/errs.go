// Package errs holds airport's error taxonomy.
//
// Domain errors (InputError, ProviderError, ...) carry the context needed to
// diagnose a failed lookup. Error wraps anything with a short user-facing
// reason for the CLI.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// UserErrorf is a user-facing error.
// This helper exists mostly to avoid linters complaining about errors starting
// with a capitalized letter.
func UserErrorf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}

// Error wraps an underlying error with a user-facing reason.
//
// When Err is nil, Error() falls back to Reason.
type Error struct {
	Err    error
	Reason string
}

// Wrap creates an Error with the given underlying error and user-facing reason.
func Wrap(err error, reason string) Error {
	return Error{Err: err, Reason: reason}
}

// Wrapf creates an Error with the given underlying error and a formatted reason.
func Wrapf(err error, format string, a ...any) Error {
	return Error{Err: err, Reason: fmt.Sprintf(format, a...)}
}

func (e Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}

func (e Error) Unwrap() error {
	return e.Err
}

// ReasonText returns the user-facing reason for the error.
func (e Error) ReasonText() string {
	return e.Reason
}

// InputError reports a missing or blank query.
type InputError struct {
	Field string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("missing %s", e.field())
}

func (e *InputError) field() string {
	if e.Field == "" {
		return "query"
	}
	return e.Field
}

// ResolutionError reports that no usable airport code could be derived.
type ResolutionError struct {
	Query     string
	Candidate string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("couldn't determine an airport code for %q (candidate %q)", e.Query, e.Candidate)
}

// ProviderError reports a non-success status from an airport data provider.
// Exactly one of Code or Query is set, depending on the lookup strategy.
type ProviderError struct {
	Provider string
	Status   int
	Code     string
	Query    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s returned %d for code %q", e.Provider, e.Status, e.Code)
	}
	return fmt.Sprintf("%s returned %d for query %q", e.Provider, e.Status, e.Query)
}

// NotFoundError reports a successful provider response with no matches.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no airport found for %q", e.Query)
}

// ValidationError reports a stage output that does not fit the next stage.
type ValidationError struct {
	Stage string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stage %s: invalid output: %v", e.Stage, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AgentUnavailableError reports that the narrative agent is not registered.
type AgentUnavailableError struct {
	Name string
}

func (e *AgentUnavailableError) Error() string {
	return fmt.Sprintf("agent %q is not registered", e.Name)
}

// TimeoutError reports an outbound call that did not finish in time.
type TimeoutError struct {
	Op    string
	After time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
	}
	return fmt.Sprintf("%s timed out", e.Op)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ReasonOf returns a short user-facing explanation for err.
func ReasonOf(err error) string {
	var (
		merr   Error
		inErr  *InputError
		resErr *ResolutionError
		pErr   *ProviderError
		nfErr  *NotFoundError
		vErr   *ValidationError
		aErr   *AgentUnavailableError
		tErr   *TimeoutError
	)
	switch {
	case errors.As(err, &merr) && merr.Reason != "":
		return merr.Reason
	case errors.As(err, &inErr):
		return "Please provide an airport name or code."
	case errors.As(err, &resErr):
		return fmt.Sprintf("Couldn't determine an airport code for %q.", resErr.Query)
	case errors.As(err, &pErr):
		return fmt.Sprintf("The %s provider request failed.", pErr.Provider)
	case errors.As(err, &nfErr):
		return fmt.Sprintf("No airport found for %q.", nfErr.Query)
	case errors.As(err, &vErr):
		return "A lookup stage produced malformed data."
	case errors.As(err, &aErr):
		return "The airport agent is not available."
	case errors.As(err, &tErr):
		return "The request timed out."
	}
	return ""
}
