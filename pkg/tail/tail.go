// Package tail follows a live Server-Sent Events endpoint, rendering each
// event as it arrives and optionally forwarding it to a sink.
package tail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/ssetap/pkg/cliui"
	"github.com/papercomputeco/ssetap/pkg/logger"
	"github.com/papercomputeco/ssetap/pkg/sink"
	"github.com/papercomputeco/ssetap/pkg/sse"
	"github.com/papercomputeco/ssetap/pkg/utils"
)

// Stats summarises a finished tail.
type Stats struct {
	// Events is the number of events rendered.
	Events uint64 `json:"events"`

	// LastEventID is the id of the last rendered event, usable to resume.
	LastEventID string `json:"last_event_id,omitempty"`

	// Terminated is true when a terminating event ended the tail.
	Terminated bool `json:"terminated"`

	// Forwarded and Dropped count records handed to, or refused by, the pool.
	Forwarded uint64 `json:"forwarded"`
	Dropped   uint64 `json:"dropped"`

	Duration time.Duration `json:"duration"`
}

// Tailer tails one SSE endpoint.
type Tailer struct {
	opts   Options
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// New validates opts and returns a Tailer.
func New(opts Options) (*Tailer, error) {
	if opts.URL == "" {
		return nil, ErrNoURL
	}

	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	opts.Format = format

	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}

	return &Tailer{
		opts:   opts,
		client: client,
		logger: logger.OrNop(opts.Logger),
		now:    time.Now,
	}, nil
}

// Run requests the stream and renders events to out until the stream ends,
// a terminating event arrives, ctx is cancelled or an error occurs.
// The Stats are valid even when an error is returned.
func (t *Tailer) Run(ctx context.Context, out io.Writer) (stats Stats, err error) {
	start := t.now()
	defer func() { stats.Duration = t.now().Sub(start) }()

	resp, err := t.connect(ctx)
	if err != nil {
		return stats, err
	}
	defer resp.Body.Close()

	events, err := sse.RequireEventStream(resp)
	if err != nil {
		return stats, err
	}

	detect := t.detector(&stats)

	switch t.opts.Format {
	case FormatJSON:
		r := newJSONRenderer(out)
		err = drain(ctx, sse.DecodeJSON[json.RawMessage](events, detect), t.logger, func(ev sse.JSONEvent[json.RawMessage]) error {
			t.observe(&stats, sse.Event{ID: ev.ID, Event: ev.Event, Data: string(ev.Data), Retry: ev.Retry})
			return r.render(ev)
		})

	case FormatRaw:
		err = drain(ctx, sse.TakeUntil(events, detect), t.logger, func(ev sse.Event) error {
			t.observe(&stats, ev)
			return sse.WriteEvent(out, ev)
		})

	default:
		r := &textRenderer{w: out, color: t.color(out), now: t.now}
		err = drain(ctx, sse.TakeUntil(events, detect), t.logger, func(ev sse.Event) error {
			t.observe(&stats, ev)
			return r.render(ev)
		})
	}

	t.logger.Debug("tail finished",
		"url", t.opts.URL,
		"events", stats.Events,
		"last_event_id", stats.LastEventID,
		"terminated", stats.Terminated,
	)

	return stats, err
}

func (t *Tailer) connect(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	for k, vs := range t.opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if t.opts.LastEventID != "" {
		req.Header.Set("Last-Event-ID", t.opts.LastEventID)
	}

	t.logger.Debug("connecting", "url", t.opts.URL, "last_event_id", t.opts.LastEventID)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", t.opts.URL, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if t.opts.Record != nil {
		resp.Body = &teeBody{Reader: io.TeeReader(resp.Body, t.opts.Record), Closer: resp.Body}
	}

	return resp, nil
}

func (t *Tailer) detector(stats *Stats) sse.TerminateDetector {
	var dataDetector sse.TerminateDetector
	if t.opts.DoneData != "" {
		dataDetector = sse.DataDetector(t.opts.DoneData)
	}

	var typeDetector sse.TerminateDetector
	if len(t.opts.TerminateOn) > 0 {
		typeDetector = sse.EventTypeDetector(t.opts.TerminateOn...)
	}

	detect := sse.AnyDetector(typeDetector, dataDetector)
	if detect == nil {
		return nil
	}

	return func(ev sse.Event) bool {
		if !detect(ev) {
			return false
		}
		stats.Terminated = true
		t.logger.Debug("terminating event", "event", ev.Event, "id", ev.ID)
		return true
	}
}

func (t *Tailer) observe(stats *Stats, ev sse.Event) {
	stats.Events++
	stats.LastEventID = ev.ID

	if t.opts.Pool == nil {
		return
	}
	if t.opts.Pool.Enqueue(sink.NewRecord(stats.Events, t.opts.URL, ev)) {
		stats.Forwarded++
	} else {
		stats.Dropped++
	}
}

func (t *Tailer) color(out io.Writer) bool {
	if t.opts.Color != nil {
		return *t.opts.Color
	}
	return cliui.IsTerminal(out)
}

// drain feeds every value of s to handle. A handler error stops iteration,
// which cancels the stream and closes the response body.
func drain[T any](ctx context.Context, s *sse.Stream[T], l *slog.Logger, handle func(T) error) error {
	it, err := sse.NewIterator(s, sse.WithIteratorLogger(l))
	if err != nil {
		return err
	}

	for v, err := range it.All(ctx) {
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := handle(v); err != nil {
			return fmt.Errorf("rendering event: %w", err)
		}
	}
	return nil
}

type teeBody struct {
	io.Reader
	io.Closer
}

// Summary is a one-line description of stats for the CLI footer.
func Summary(stats Stats) string {
	s := fmt.Sprintf("%d events in %s", stats.Events, stats.Duration.Round(time.Millisecond))
	if stats.LastEventID != "" {
		s += ", last id " + utils.Truncate(stats.LastEventID, 40)
	}
	if stats.Terminated {
		s += ", terminated"
	}
	if stats.Forwarded > 0 || stats.Dropped > 0 {
		s += fmt.Sprintf(", %d forwarded, %d dropped", stats.Forwarded, stats.Dropped)
	}
	return s
}
