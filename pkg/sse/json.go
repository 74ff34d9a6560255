package sse

import "encoding/json"

// JSONMapper decodes each event's data as JSON into T.
//
// If a TerminateDetector is set and fires for an event, the output stream
// ends there: nothing is emitted for that event and its data is never
// decoded. JSON errors are returned unwrapped so callers can tell payload
// errors apart from framing errors.
type JSONMapper[T any] struct {
	detector TerminateDetector
}

// NewJSONMapper returns a JSONMapper. detector may be nil.
func NewJSONMapper[T any](detector TerminateDetector) *JSONMapper[T] {
	return &JSONMapper[T]{detector: detector}
}

func (m *JSONMapper[T]) Transform(ev Event, c *Controller[JSONEvent[T]]) error {
	if m.detector != nil && m.detector(ev) {
		c.Terminate()
		return nil
	}

	var data T
	if err := json.Unmarshal([]byte(ev.Data), &data); err != nil {
		return err
	}

	return c.Enqueue(JSONEvent[T]{
		ID:    ev.ID,
		Event: ev.Event,
		Data:  data,
		Retry: copyRetry(ev.Retry),
	})
}

func (m *JSONMapper[T]) Flush(_ *Controller[JSONEvent[T]]) error {
	return nil
}

// DecodeJSON pipes an event stream through a new JSONMapper.
func DecodeJSON[T any](events *Stream[Event], detector TerminateDetector) *Stream[JSONEvent[T]] {
	return Pipe[Event, JSONEvent[T]](events, NewJSONMapper[T](detector))
}
