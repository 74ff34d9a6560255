package replay

import (
	"log/slog"
	"time"
)

// Config is the replay server configuration.
type Config struct {
	// ListenAddr is the address the server listens on (e.g. ":8090").
	ListenAddr string

	// Fixture is the path of the recorded SSE stream to serve.
	Fixture string

	// Interval is the delay between frames. Zero sends frames back to back.
	Interval time.Duration

	// Watch reloads the fixture whenever it changes on disk.
	Watch bool

	// AssignIDs gives frames without an id a generated one so clients can
	// resume with Last-Event-ID.
	AssignIDs bool

	Logger *slog.Logger
}
