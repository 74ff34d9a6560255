package sse

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Source is a pull-based producer of values. Next blocks until a value is
// available and returns io.EOF once the source is exhausted.
type Source[T any] interface {
	Next(ctx context.Context) (T, error)
}

// Canceler is implemented by sources that hold upstream resources which
// should be released when the consumer gives up early.
type Canceler interface {
	Cancel(reason error) error
}

// Stream is a single-consumer, pull-based sequence of values.
//
// A Stream is read through a Reader, and at most one Reader may hold a
// Stream at a time. Once the underlying source reports io.EOF the stream is
// done; once it reports any other error that error is terminal and returned
// from every later read.
type Stream[T any] struct {
	src Source[T]

	mu     sync.Mutex
	locked bool

	done bool
	err  error
}

// NewStream returns a Stream pulling from src.
func NewStream[T any](src Source[T]) *Stream[T] {
	return &Stream[T]{src: src}
}

// FromSlice returns a Stream that yields values in order and then ends.
func FromSlice[T any](values []T) *Stream[T] {
	return NewStream[T](&sliceSource[T]{values: values})
}

// Errored returns a Stream that fails with err on the first read.
func Errored[T any](err error) *Stream[T] {
	return &Stream[T]{err: err}
}

// Locked reports whether a Reader currently holds the stream.
func (s *Stream[T]) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

// Reader acquires exclusive read access to the stream. It returns
// ErrStreamLocked if another Reader already holds it.
func (s *Stream[T]) Reader() (*Reader[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return nil, ErrStreamLocked
	}
	s.locked = true

	return &Reader[T]{stream: s}, nil
}

// Cancel ends an unlocked stream and releases its upstream resources.
// Locked streams must be cancelled through their Reader.
func (s *Stream[T]) Cancel(reason error) error {
	if s.Locked() {
		return ErrStreamLocked
	}
	return s.cancel(reason)
}

func (s *Stream[T]) read(ctx context.Context) (T, bool, error) {
	var zero T

	if s.err != nil {
		return zero, true, s.err
	}
	if s.done {
		return zero, true, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	v, err := s.src.Next(ctx)
	switch {
	case err == nil:
		return v, false, nil
	case errors.Is(err, io.EOF):
		s.done = true
		return zero, true, nil
	default:
		s.err = err
		return zero, true, err
	}
}

func (s *Stream[T]) cancel(reason error) error {
	if s.done || s.err != nil {
		return nil
	}
	s.done = true

	if c, ok := s.src.(Canceler); ok {
		return c.Cancel(reason)
	}
	return nil
}

func (s *Stream[T]) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false
}

// Reader is an exclusive handle on a Stream obtained with Stream.Reader.
type Reader[T any] struct {
	stream   *Stream[T]
	released bool
}

// Read pulls the next value. done is true once the stream has ended; a
// non-nil error is terminal for the stream.
func (r *Reader[T]) Read(ctx context.Context) (value T, done bool, err error) {
	if r.released {
		return value, true, ErrReaderReleased
	}
	return r.stream.read(ctx)
}

// Cancel ends the stream early and propagates the cancellation upstream.
func (r *Reader[T]) Cancel(reason error) error {
	if r.released {
		return ErrReaderReleased
	}
	return r.stream.cancel(reason)
}

// ReleaseLock gives up the reader's hold on the stream so that another
// Reader may be acquired. Releasing twice returns ErrReaderReleased.
func (r *Reader[T]) ReleaseLock() error {
	if r.released {
		return ErrReaderReleased
	}
	r.released = true
	r.stream.release()
	return nil
}

// Collect drains s and returns every value it produced.
func Collect[T any](ctx context.Context, s *Stream[T]) ([]T, error) {
	r, err := s.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.ReleaseLock() }()

	var out []T
	for {
		v, done, err := r.Read(ctx)
		if err != nil {
			return out, err
		}
		if done {
			return out, nil
		}
		out = append(out, v)
	}
}

type sliceSource[T any] struct {
	values []T
}

func (s *sliceSource[T]) Next(_ context.Context) (T, error) {
	var zero T
	if len(s.values) == 0 {
		return zero, io.EOF
	}

	v := s.values[0]
	s.values = s.values[1:]
	return v, nil
}
