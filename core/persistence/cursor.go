package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrStreamClosed is returned by Next after the stream was closed, either
// explicitly or by exhaustion.
var ErrStreamClosed = errors.New("stream is closed")

// BatchFunc fetches one page of results: limit rows starting at offset.
type BatchFunc func(ctx context.Context, offset, limit int) ([]any, error)

// Stream is a forward-only, single-pass cursor realized by repeated
// paginated executions of one query context. It keeps at most one batch in
// memory, reports an unknown total size, refuses to be split for parallel
// consumption, and closes itself on exhaustion. A failing batch fetch
// propagates to the caller as-is; there is no internal retry.
type Stream struct {
	fetch     BatchFunc
	batchSize int

	mu        sync.Mutex
	offset    int
	batch     []any
	pos       int
	exhausted bool // source returned a short batch; no further fetches
	closed    bool
}

// NewStream creates a sequentially-batched stream starting at offset zero.
func NewStream(fetch BatchFunc, batchSize int) *Stream {
	return NewStreamAt(fetch, batchSize, 0)
}

// NewStreamAt creates a stream whose first batch starts at the given offset,
// for resumable or skip-ahead consumption.
func NewStreamAt(fetch BatchFunc, batchSize, offset int) *Stream {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Stream{fetch: fetch, batchSize: batchSize, offset: offset}
}

// Next returns the next item. The second return is false exactly once, when
// the stream runs out; the stream auto-closes at that point and every later
// call returns ErrStreamClosed.
func (s *Stream) Next(ctx context.Context) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, ErrStreamClosed
	}

	if s.pos >= len(s.batch) {
		if s.exhausted {
			s.close()
			return nil, false, nil
		}
		batch, err := s.fetch(ctx, s.offset, s.batchSize)
		if err != nil {
			return nil, false, err
		}
		s.offset += len(batch)
		s.batch = batch
		s.pos = 0
		if len(batch) < s.batchSize {
			s.exhausted = true
		}
		if len(batch) == 0 {
			s.close()
			return nil, false, nil
		}
	}

	item := s.batch[s.pos]
	s.pos++
	return item, true, nil
}

// Drain consumes the remainder of the stream into a callback. It stops on
// the first callback or fetch error.
func (s *Stream) Drain(ctx context.Context, fn func(item any) error) error {
	for {
		item, ok, err := s.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(item); err != nil {
			return err
		}
	}
}

// close releases the batch window. Callers hold the mutex.
func (s *Stream) close() {
	s.closed = true
	s.batch = nil
	s.pos = 0
}

// Close releases the stream. After Close, Next returns ErrStreamClosed.
// Closing an exhausted or already-closed stream is a no-op.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.close()
	return nil
}

// SizeKnown reports whether the total size is known ahead of consumption.
// It never is: the stream is unbounded by contract.
func (s *Stream) SizeKnown() bool {
	return false
}

// Split refuses parallel consumption: the stream is strictly single-pass
// and forward-only.
func (s *Stream) Split() (*Stream, error) {
	return nil, fmt.Errorf("stream cannot be split for parallel consumption")
}
