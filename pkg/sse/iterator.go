package sse

import (
	"context"
	"iter"
	"log/slog"
)

// Result is one step of an Iterator. Value is only meaningful when Done is
// false.
type Result[T any] struct {
	Value T
	Done  bool
}

// IteratorOption configures an Iterator.
type IteratorOption func(*iteratorConfig)

type iteratorConfig struct {
	logger *slog.Logger
}

// WithIteratorLogger sets the logger that records swallowed cancel and
// release failures. Defaults to slog.Default().
func WithIteratorLogger(l *slog.Logger) IteratorOption {
	return func(c *iteratorConfig) {
		c.logger = l
	}
}

// Iterator consumes a Stream value by value while holding its reader lock.
//
// The lock is released exactly once: when Next reports done or fails, or on
// Return, Throw or ReleaseLock, whichever happens first.
type Iterator[T any] struct {
	reader *Reader[T]
	locked bool
	logger *slog.Logger
}

// NewIterator locks s for reading. It fails with ErrStreamLocked if s already
// has a reader.
func NewIterator[T any](s *Stream[T], opts ...IteratorOption) (*Iterator[T], error) {
	cfg := &iteratorConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	r, err := s.Reader()
	if err != nil {
		return nil, err
	}

	return &Iterator[T]{
		reader: r,
		locked: true,
		logger: cfg.logger,
	}, nil
}

// Next reads one value. At the end of the stream it releases the lock and
// returns a done Result. Read failures also release the lock and are
// returned to the caller.
func (it *Iterator[T]) Next(ctx context.Context) (Result[T], error) {
	v, done, err := it.reader.Read(ctx)
	if err != nil {
		it.ReleaseLock()
		return Result[T]{Done: true}, err
	}
	if done {
		it.ReleaseLock()
		return Result[T]{Done: true}, nil
	}

	return Result[T]{Value: v}, nil
}

// ReleaseLock releases the reader lock. It returns false if the lock was
// already released or the release failed; failures are logged, not returned.
func (it *Iterator[T]) ReleaseLock() bool {
	if !it.locked {
		return false
	}
	it.locked = false

	if err := it.reader.ReleaseLock(); err != nil {
		it.logger.Warn("failed to release stream reader lock", "error", err)
		return false
	}
	return true
}

// Return ends iteration early: it cancels the stream on a best-effort basis,
// releases the lock and reports done. It never fails.
func (it *Iterator[T]) Return(_ context.Context) Result[T] {
	if it.locked {
		if err := it.reader.Cancel(nil); err != nil {
			it.logger.Warn("failed to cancel stream", "error", err)
		}
	}
	it.ReleaseLock()

	return Result[T]{Done: true}
}

// Throw releases the lock and reports done. The injected error is logged at
// debug level and not returned.
func (it *Iterator[T]) Throw(err error) Result[T] {
	it.logger.Debug("iterator closed by injected error", "error", err)
	it.ReleaseLock()

	return Result[T]{Done: true}
}

// All adapts the iterator to a range-over-func sequence. Breaking out of the
// loop calls Return; a read error is yielded once and ends the sequence.
//
//	for ev, err := range it.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    handle(ev)
//	}
func (it *Iterator[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			res, err := it.Next(ctx)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if res.Done {
				return
			}
			if !yield(res.Value, nil) {
				it.Return(ctx)
				return
			}
		}
	}
}
