package sse

import (
	"context"
	"io"
)

// Transformer is one incremental pipeline stage. Transform is called once per
// upstream value and Flush once when the upstream ends. Both may enqueue any
// number of outputs on the Controller.
//
// Returning an error (or panicking) fails the output stream. The error is
// delivered to the consumer as is.
type Transformer[I, O any] interface {
	Transform(chunk I, c *Controller[O]) error
	Flush(c *Controller[O]) error
}

// Controller collects the outputs of a Transformer call and lets the
// transformer end its output stream early.
type Controller[O any] struct {
	queue      []O
	terminated bool
}

// Enqueue appends v to the output. It fails with ErrTerminated once
// Terminate has been called.
func (c *Controller[O]) Enqueue(v O) error {
	if c.terminated {
		return ErrTerminated
	}
	c.queue = append(c.queue, v)
	return nil
}

// Terminate closes the output stream. Values already enqueued are still
// delivered; the upstream is cancelled.
func (c *Controller[O]) Terminate() {
	c.terminated = true
}

// Terminated reports whether Terminate has been called.
func (c *Controller[O]) Terminated() bool {
	return c.terminated
}

func (c *Controller[O]) dequeue() (O, bool) {
	var zero O
	if len(c.queue) == 0 {
		return zero, false
	}

	v := c.queue[0]
	c.queue[0] = zero
	c.queue = c.queue[1:]
	return v, true
}

// Pipe locks upstream and returns the stream of t's outputs. If upstream is
// already locked the returned stream fails with ErrStreamLocked.
func Pipe[I, O any](upstream *Stream[I], t Transformer[I, O]) *Stream[O] {
	r, err := upstream.Reader()
	if err != nil {
		return Errored[O](err)
	}

	return NewStream[O](&transformSource[I, O]{
		upstream:    r,
		transformer: t,
	})
}

type transformSource[I, O any] struct {
	upstream    *Reader[I]
	transformer Transformer[I, O]
	ctrl        Controller[O]
	flushed     bool
	closed      bool
}

func (ts *transformSource[I, O]) Next(ctx context.Context) (O, error) {
	var zero O

	for {
		if v, ok := ts.ctrl.dequeue(); ok {
			return v, nil
		}
		if ts.ctrl.terminated {
			ts.close(nil)
			return zero, io.EOF
		}
		if ts.flushed {
			ts.close(nil)
			return zero, io.EOF
		}

		in, done, err := ts.upstream.Read(ctx)
		if err != nil {
			ts.close(err)
			return zero, err
		}

		if done {
			ts.flushed = true
			err = ts.flush()
		} else {
			err = ts.transform(in)
		}
		if err != nil {
			ts.close(err)
			return zero, err
		}
	}
}

// Cancel propagates a downstream cancellation to the upstream stream.
func (ts *transformSource[I, O]) Cancel(reason error) error {
	if ts.closed {
		return nil
	}
	ts.closed = true

	err := ts.upstream.Cancel(reason)
	_ = ts.upstream.ReleaseLock()
	return err
}

func (ts *transformSource[I, O]) transform(in I) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return ts.transformer.Transform(in, &ts.ctrl)
}

func (ts *transformSource[I, O]) flush() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return ts.transformer.Flush(&ts.ctrl)
}

// close releases the upstream once this stage is finished. Early endings
// (termination or an error raised here) cancel the upstream first.
func (ts *transformSource[I, O]) close(reason error) {
	if ts.closed {
		return
	}
	ts.closed = true

	if !ts.flushed {
		_ = ts.upstream.Cancel(reason)
	}
	_ = ts.upstream.ReleaseLock()
}
