// Package sink persists or forwards events received by "ssetap tail".
//
// A Sink receives one Record per parsed event. Drivers are selected by name
// through Open: "nop" discards records, "sqlite" and "postgres" append them to
// an events table, and "kafka" publishes them as JSON messages.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/papercomputeco/ssetap/pkg/sse"
)

const (
	// SchemaVersionV1 is the first version of the Record payload schema.
	SchemaVersionV1 = 1

	// RecordTypeEventReceived is the type of every Record emitted by the tail.
	RecordTypeEventReceived = "ssetap.event.received"
)

// ErrNilRecord indicates a nil record was handed to a sink.
var ErrNilRecord = errors.New("nil record")

// Sink accepts records. Implementations must be safe for concurrent use by
// the worker pool.
type Sink interface {
	Write(ctx context.Context, rec *Record) error
	Close() error
}

// Record is a transport-neutral envelope around one received event.
type Record struct {
	SchemaVersion int       `json:"schema_version"`
	Type          string    `json:"type"`
	Seq           uint64    `json:"seq"`
	Source        string    `json:"source"`
	ReceivedAt    time.Time `json:"received_at"`
	Event         sse.Event `json:"event"`
}

// NewRecord wraps ev in a v1 Record.
func NewRecord(seq uint64, source string, ev sse.Event) *Record {
	return &Record{
		SchemaVersion: SchemaVersionV1,
		Type:          RecordTypeEventReceived,
		Seq:           seq,
		Source:        source,
		ReceivedAt:    time.Now().UTC(),
		Event:         ev,
	}
}
