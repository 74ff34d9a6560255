package tail

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/papercomputeco/ssetap/pkg/sink/worker"
)

// Options configures a Tailer.
type Options struct {
	// URL is the SSE endpoint to GET.
	URL string

	// Header holds extra request headers, e.g. Authorization.
	Header http.Header

	// LastEventID is sent as the Last-Event-ID header when set.
	LastEventID string

	// TerminateOn lists event types that end the tail. The terminating event
	// is not rendered.
	TerminateOn []string

	// DoneData ends the tail when an event's data equals it.
	DoneData string

	// Format is one of FormatText, FormatJSON or FormatRaw. Empty means text.
	Format Format

	// Color forces styled text output on or off. Nil styles only terminals.
	Color *bool

	// Record, when set, receives a verbatim copy of the response body.
	Record io.Writer

	// Pool, when set, receives a sink.Record for every rendered event. The
	// caller owns the pool and closes it.
	Pool *worker.Pool

	// Client performs the request. Defaults to a client without a timeout.
	Client *http.Client

	Logger *slog.Logger
}
