// Package streamtest provides in-memory stream.Stream implementations for tests.
package streamtest

import (
	"context"
	"sync"

	"github.com/dotcommander/airport/internal/proto"
	"github.com/dotcommander/airport/internal/stream"
)

var _ stream.Stream = &Stream{}

// Stream replays Fragments in order. If Hang is set, Next blocks after the
// last fragment until Close is called.
type Stream struct {
	Fragments []string
	Fail      error
	Hang      bool

	mu      sync.Mutex
	once    sync.Once
	closed  chan struct{}
	pos     int
	current string
	Closed  bool
}

// New returns a stream that yields fragments and then ends.
func New(fragments ...string) *Stream {
	return &Stream{Fragments: fragments}
}

func (s *Stream) init() {
	s.once.Do(func() { s.closed = make(chan struct{}) })
}

// Next implements stream.Stream.
func (s *Stream) Next() bool {
	s.init()
	s.mu.Lock()
	if s.pos < len(s.Fragments) {
		s.current = s.Fragments[s.pos]
		s.pos++
		s.mu.Unlock()
		return true
	}
	hang := s.Hang
	s.mu.Unlock()
	if hang {
		<-s.closed
	}
	return false
}

// Current implements stream.Stream.
func (s *Stream) Current() (proto.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return proto.Chunk{Content: s.current}, nil
}

// Err implements stream.Stream.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Fail
}

// Close implements stream.Stream.
func (s *Stream) Close() error {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Closed {
		s.Closed = true
		close(s.closed)
	}
	return nil
}

// IsClosed reports whether Close was called.
func (s *Stream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Closed
}

// DrainWarnings implements stream.Stream.
func (s *Stream) DrainWarnings() []string { return nil }

// Client returns the same stream for every request and records the requests.
type Client struct {
	Stream   stream.Stream
	mu       sync.Mutex
	Requests []proto.Request
}

// Request implements stream.Client.
func (c *Client) Request(_ context.Context, req proto.Request) stream.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests = append(c.Requests, req)
	return c.Stream
}
