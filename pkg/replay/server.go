// Package replay serves a recorded Server-Sent Events stream over HTTP.
//
// The fixture is parsed with the sse pipeline once at startup (and again on
// change when watching) and each client receives the frames from the start,
// or from just after the frame named by its Last-Event-ID header.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ssetap/pkg/logger"
	"github.com/papercomputeco/ssetap/pkg/sse"
)

// LastEventIDHeader is the request header a reconnecting client sends.
const LastEventIDHeader = "Last-Event-ID"

// Server replays a fixture to every client of GET /events.
type Server struct {
	config Config
	app    *fiber.App
	logger *slog.Logger

	mu     sync.RWMutex
	frames []sse.Event

	done      chan struct{}
	closeOnce sync.Once
	watcher   *fsnotify.Watcher
}

// New loads the fixture and builds the server. It does not start listening.
func New(ctx context.Context, config Config) (*Server, error) {
	if config.Fixture == "" {
		return nil, errors.New("replay server requires a fixture")
	}

	s := &Server{
		config: config,
		logger: logger.OrNop(config.Logger),
		done:   make(chan struct{}),
	}

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	if config.Watch {
		if err := s.watch(); err != nil {
			return nil, err
		}
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})
	app.Get("/healthz", s.handleHealth)
	app.Get("/events", s.handleEvents)
	app.Get("/frames", s.handleFrames)
	s.app = app

	return s, nil
}

// Reload re-reads the fixture. Clients already streaming keep their snapshot.
func (s *Server) Reload(ctx context.Context) error {
	frames, err := LoadFixture(ctx, s.config.Fixture, s.config.AssignIDs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.frames = frames
	s.mu.Unlock()

	s.logger.Info("fixture loaded",
		"path", s.config.Fixture,
		"frames", len(frames),
	)
	return nil
}

// Frames returns a snapshot of the frames currently served.
func (s *Server) Frames() []sse.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// Handler exposes the server as a net/http handler.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

// Run starts the server on the configured listen address.
func (s *Server) Run() error {
	s.logger.Info("starting replay server",
		"listen", s.config.ListenAddr,
		"fixture", s.config.Fixture,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting replay server",
		"listen", listener.Addr().String(),
		"fixture", s.config.Fixture,
	)
	return s.app.Listener(listener)
}

// Close stops in-flight replays, the fixture watcher and the HTTP server.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.watcher != nil {
			err = s.watcher.Close()
		}
		err = errors.Join(err, s.app.Shutdown())
	})
	return err
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"frames": len(s.Frames()),
	})
}

func (s *Server) handleFrames(c *fiber.Ctx) error {
	return c.JSON(s.Frames())
}

func (s *Server) handleEvents(c *fiber.Ctx) error {
	lastID := c.Get(LastEventIDHeader)
	if lastID == "" {
		lastID = c.Query("lastEventId")
	}

	frames := s.Frames()
	start := resumeIndex(frames, lastID)

	s.logger.Debug("replaying fixture",
		"remote", c.IP(),
		"last_event_id", lastID,
		"from", start,
		"frames", len(frames),
	)

	c.Set(fiber.HeaderContentType, "text/event-stream; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// io.Pipe gives per-frame flushing and stops the writer once the client
	// goes away and fasthttp closes the reader.
	pr, pw := io.Pipe()
	go s.replay(pw, frames[start:])
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) replay(pw *io.PipeWriter, frames []sse.Event) {
	defer pw.Close()

	for i, ev := range frames {
		if i > 0 && s.config.Interval > 0 {
			select {
			case <-s.done:
				return
			case <-time.After(s.config.Interval):
			}
		}

		if err := sse.WriteEvent(pw, ev); err != nil {
			s.logger.Debug("client went away", "sent", i, "error", err)
			return
		}
	}
}

// watch reloads the fixture on write. The parent directory is watched so
// editors that replace the file are picked up too.
func (s *Server) watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fixture watcher: %w", err)
	}

	if err := w.Add(fixtureDir(s.config.Fixture)); err != nil {
		w.Close()
		return fmt.Errorf("watching fixture dir: %w", err)
	}
	s.watcher = w

	go func() {
		for {
			select {
			case <-s.done:
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !sameFile(event.Name, s.config.Fixture) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := s.Reload(context.Background()); err != nil {
					s.logger.Warn("fixture reload failed", "error", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("fixture watcher error", "error", err)
			}
		}
	}()

	return nil
}
