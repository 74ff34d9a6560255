package sse

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrStreamLocked is returned when a reader is requested for a stream that
	// another reader already holds.
	ErrStreamLocked = errors.New("sse: stream is locked to a reader")

	// ErrReaderReleased is returned by Reader methods after ReleaseLock.
	ErrReaderReleased = errors.New("sse: reader lock released")

	// ErrTerminated is returned by Controller.Enqueue once the stream has
	// been terminated.
	ErrTerminated = errors.New("sse: stream terminated")

	// ErrNoBody indicates a response that has no body to stream from.
	ErrNoBody = errors.New("sse: response has no body")
)

// ConversionError is returned when an HTTP response cannot be turned into a
// stream at all. It keeps a reference to the originating response.
type ConversionError struct {
	Response *http.Response
	Err      error
}

func (e *ConversionError) Error() string {
	return "sse: converting response to stream: " + e.Err.Error()
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// UnavailableError is returned when event stream capabilities are requested
// on a response that is not text/event-stream.
type UnavailableError struct {
	ContentType string
}

func (e *UnavailableError) Error() string {
	if e.ContentType == "" {
		return "sse: event stream not available: response has no content type"
	}
	return fmt.Sprintf("sse: event stream not available for content type %q", e.ContentType)
}

// panicError converts a recovered panic value into an error. Error values are
// returned as is, anything else is stringified.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errors.New(fmt.Sprint(r))
}
