// Package sse turns a Server-Sent Events byte stream into a pull-based
// sequence of typed events.
//
// The pipeline is a chain of small transforms, each consuming one stream and
// producing another:
//
//	┌─────────────┐   ┌──────────────┐   ┌─────────────┐   ┌────────────┐
//	│ TextDecoder │──▶│ LineSplitter │──▶│ EventParser │──▶│ JSONMapper │
//	└─────────────┘   └──────────────┘   └─────────────┘   └────────────┘
//	   []byte → text     text → lines      lines → Event    Event → JSONEvent
//
// Work only happens when the consumer pulls: a Stream asks its upstream for
// more input only after its own queue has drained. Iterator wraps any Stream
// for "for each value" consumption with guaranteed lock release on every exit
// path.
//
// WriteEvent encodes a single Event back to wire format. This package
// intentionally does NOT provide server capabilities, reconnection, or a
// maximum event size.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// DefaultEventType is the event type used when a frame carries no "event:" field.
const DefaultEventType = "message"

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream text stream.
type Event struct {
	// ID is the last event ID seen on the stream, from the "id:" field.
	// It carries over to later events until another "id:" field replaces it,
	// and is empty if the stream never set one.
	ID string `json:"id"`

	// Event is the SSE event type from the "event:" field, DefaultEventType
	// when unspecified.
	Event string `json:"event"`

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n".
	Data string `json:"data"`

	// Retry is the reconnection hint in milliseconds. It is nil until the
	// stream supplies a valid integer and, like ID, carries over between events.
	Retry *int `json:"retry,omitempty"`
}

// JSONEvent is an Event whose data payload has been decoded as JSON into T.
type JSONEvent[T any] struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Data  T      `json:"data"`
	Retry *int   `json:"retry,omitempty"`
}

// TerminateDetector reports whether an incoming event should end the stream.
// It is called at most once per event and must not retain the event.
type TerminateDetector func(Event) bool

// EventTypeDetector returns a TerminateDetector that fires on any of the
// given event types.
func EventTypeDetector(types ...string) TerminateDetector {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}

	return func(ev Event) bool {
		_, ok := set[ev.Event]
		return ok
	}
}

// DataDetector returns a TerminateDetector that fires when the event data
// equals sentinel exactly, e.g. OpenAI's "[DONE]".
func DataDetector(sentinel string) TerminateDetector {
	return func(ev Event) bool {
		return ev.Data == sentinel
	}
}

func copyRetry(retry *int) *int {
	if retry == nil {
		return nil
	}
	r := *retry
	return &r
}
