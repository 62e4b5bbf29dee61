// Package stream defines the incremental text-generation contract and helpers
// to consume it.
package stream

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dotcommander/airport/internal/proto"
)

// ErrNoContent is returned by Stream.Current when the current event carries no
// text (start/finish markers, warnings, ...).
var ErrNoContent = errors.New("no content")

// Client starts streaming completions.
type Client interface {
	Request(ctx context.Context, request proto.Request) Stream
}

// Stream is a sequence of text fragments terminated when Next returns false.
type Stream interface {
	Next() bool
	Current() (proto.Chunk, error)
	Err() error
	Close() error
	DrainWarnings() []string
}

// Collect drains s to exhaustion and returns the fragments concatenated in
// arrival order. onFragment, when non-nil, sees every fragment as it arrives.
//
// If ctx is done before the stream ends, the stream is closed and ctx.Err() is
// returned; a partial text is never returned.
func Collect(ctx context.Context, s Stream, onFragment func(string)) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)

	// stopped is set under mu once Collect gives up, so no fragment reaches
	// onFragment after Collect returns.
	var (
		mu      sync.Mutex
		stopped bool
	)
	emit := func(fragment string) {
		mu.Lock()
		defer mu.Unlock()
		if !stopped {
			onFragment(fragment)
		}
	}

	go func() {
		var sb strings.Builder
		for s.Next() {
			chunk, err := s.Current()
			if errors.Is(err, ErrNoContent) {
				continue
			}
			if err != nil {
				done <- result{err: err}
				return
			}
			if chunk.Content == "" {
				continue
			}
			sb.WriteString(chunk.Content)
			if onFragment != nil {
				emit(chunk.Content)
			}
		}
		done <- result{text: sb.String(), err: s.Err()}
	}()

	select {
	case <-ctx.Done():
		mu.Lock()
		stopped = true
		mu.Unlock()
		_ = s.Close()
		return "", ctx.Err()
	case r := <-done:
		_ = s.Close()
		if r.err != nil {
			return "", r.err
		}
		return r.text, nil
	}
}
