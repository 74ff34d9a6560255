// Package tap provides a transparent HTTP proxy that records the
// Server-Sent Events flowing back from an upstream.
//
// The tap sits between a client and the upstream like so:
//
//	Client <--> Tap <--> Upstream
//
// Every request is forwarded as is. When the upstream answers with
// text/event-stream the raw bytes are streamed to the client verbatim while a
// copy is parsed with the sse pipeline and each event is handed to the worker
// pool. Any other response is passed through untouched.
package tap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ssetap/pkg/logger"
	"github.com/papercomputeco/ssetap/pkg/sink"
	"github.com/papercomputeco/ssetap/pkg/sink/worker"
	"github.com/papercomputeco/ssetap/pkg/sse"
)

// Config is the tap configuration.
type Config struct {
	// ListenAddr is the address the tap listens on (e.g. ":8091").
	ListenAddr string

	// UpstreamURL is the base URL every request path is appended to.
	UpstreamURL string

	// Pool receives one record per tapped event. Nil only logs events.
	Pool *worker.Pool

	// Client performs upstream requests. Defaults to a client without a
	// timeout since streams are long lived.
	Client *http.Client

	Logger *slog.Logger
}

// Stats counts tapped traffic.
type Stats struct {
	Requests uint64
	Streams  uint64
	Events   uint64
}

// Tap is a recording reverse proxy.
type Tap struct {
	config   Config
	upstream string
	app      *fiber.App
	client   *http.Client
	logger   *slog.Logger

	// ctx scopes every upstream request; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	streams   sync.WaitGroup
	closeOnce sync.Once
	closeErr  error

	requests atomic.Uint64
	tapped   atomic.Uint64
	events   atomic.Uint64
}

// New builds a Tap. It does not start listening.
func New(config Config) (*Tap, error) {
	if config.UpstreamURL == "" {
		return nil, errors.New("tap requires an upstream url")
	}

	client := config.Client
	if client == nil {
		client = &http.Client{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Tap{
		config:   config,
		upstream: strings.TrimRight(config.UpstreamURL, "/"),
		client:   client,
		logger:   logger.OrNop(config.Logger),
		ctx:      ctx,
		cancel:   cancel,
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	// Forward any path to upstream
	app.All("/*", t.handle)
	t.app = app

	return t, nil
}

// Handler exposes the tap as a net/http handler.
func (t *Tap) Handler() http.Handler {
	return adaptor.FiberApp(t.app)
}

// Run starts the tap on the configured listen address.
func (t *Tap) Run() error {
	t.logger.Info("starting tap proxy",
		"listen", t.config.ListenAddr,
		"upstream", t.upstream,
	)
	return t.app.Listen(t.config.ListenAddr)
}

// RunWithListener starts the tap using the provided listener.
func (t *Tap) RunWithListener(listener net.Listener) error {
	t.logger.Info("starting tap proxy",
		"listen", listener.Addr().String(),
		"upstream", t.upstream,
	)
	return t.app.Listener(listener)
}

// Close aborts in-flight upstream requests, shuts the HTTP server down and
// waits for every tapped stream to stop enqueueing. The pool is owned by the
// caller and is safe to close once Close returns. Close may be called more
// than once; later calls wait for the first to finish.
func (t *Tap) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()

		t.cancel()
		t.closeErr = t.app.Shutdown()
		t.streams.Wait()
	})
	return t.closeErr
}

// Stats returns a snapshot of the tap counters.
func (t *Tap) Stats() Stats {
	return Stats{
		Requests: t.requests.Load(),
		Streams:  t.tapped.Load(),
		Events:   t.events.Load(),
	}
}

func (t *Tap) handle(c *fiber.Ctx) error {
	t.requests.Add(1)

	// fiber reuses its buffers once the handler returns.
	target := t.upstream + c.OriginalURL()
	body := bytes.Clone(c.Body())

	var reqBody io.Reader
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}

	// Not c.Context(): fasthttp recycles the RequestCtx while the body stream
	// is still being written.
	req, err := http.NewRequestWithContext(t.ctx, c.Method(), target, reqBody)
	if err != nil {
		t.logger.Error("failed to create upstream request", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	setUpstreamRequestHeaders(c, req)

	t.logger.Debug("forwarding request to upstream",
		"method", req.Method,
		"url", target,
	)

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Error("upstream request failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream request failed"})
	}

	setClientResponseHeaders(c, resp)
	c.Status(resp.StatusCode)

	if !sse.IsEventStream(resp) {
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			t.logger.Error("failed to read upstream response", "error", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to read upstream response"})
		}
		return c.Send(respBody)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		resp.Body.Close()
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "tap is shutting down"})
	}
	t.streams.Add(1)
	t.mu.Unlock()

	t.tapped.Add(1)
	t.logger.Info("tapping event stream", "url", target)

	// io.Pipe gives per-chunk backpressure: fasthttp flushes each chunk it
	// reads from pr to the socket.
	pr, pw := io.Pipe()
	go func() {
		defer t.streams.Done()
		t.tapStream(resp, pw, target)
	}()

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// tapStream copies the upstream body to pw while parsing the same bytes into
// events.
func (t *Tap) tapStream(resp *http.Response, pw *io.PipeWriter, source string) {
	defer resp.Body.Close()

	tee := io.TeeReader(resp.Body, pw)
	events := sse.NewEventStream(tee)

	it, err := sse.NewIterator(events, sse.WithIteratorLogger(t.logger))
	if err != nil {
		pw.CloseWithError(err)
		return
	}

	var seq uint64
	for ev, err := range it.All(t.ctx) {
		if err != nil && errors.Is(err, context.Canceled) {
			t.logger.Debug("event stream aborted", "url", source)
			pw.CloseWithError(err)
			return
		}
		if err != nil {
			t.logger.Warn("event stream ended with error",
				"url", source,
				"error", err,
			)
			pw.CloseWithError(err)
			return
		}

		seq++
		t.events.Add(1)
		t.logger.Debug("tapped event",
			"url", source,
			"seq", seq,
			"event", ev.Event,
			"id", ev.ID,
		)

		if t.config.Pool != nil {
			t.config.Pool.Enqueue(sink.NewRecord(seq, source, ev))
		}
	}

	t.logger.Debug("event stream finished",
		"url", source,
		"events", seq,
	)
	pw.Close()
}

// String describes the tap for log lines and CLI output.
func (t *Tap) String() string {
	return fmt.Sprintf("%s -> %s", t.config.ListenAddr, t.upstream)
}
