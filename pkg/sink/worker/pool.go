// Package worker provides an asynchronous worker pool that hands records to a
// sink.Sink off the tail's read loop.
//
// The pool decouples sink writes from event rendering so a slow database or
// broker never stalls the stream being tailed.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/ssetap/pkg/logger"
	"github.com/papercomputeco/ssetap/pkg/sink"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultWriteTimeout      = 10 * time.Second
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Sink receives every enqueued record.
	Sink sink.Sink

	// NumWorkers is the number of background workers in the pool.
	// A single worker preserves record order.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// WriteTimeout bounds each Sink.Write call (defaults to 10s).
	WriteTimeout time.Duration

	Logger *slog.Logger
}

// Stats counts what happened to enqueued records.
type Stats struct {
	Written uint64
	Failed  uint64
	Dropped uint64
}

// Pool writes records to a sink asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan *sink.Record
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed so Enqueue never sends on a closed queue.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	written atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Sink == nil {
		return nil, errors.New("worker pool requires a sink")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultWriteTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *sink.Record, c.QueueSize),
		logger: logger.OrNop(c.Logger),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a record for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the record being dropped
func (p *Pool) Enqueue(rec *sink.Record) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.dropped.Add(1)
		p.logger.Warn("record not queued, pool closed, record dropped",
			"seq", rec.Seq,
			"event", rec.Event.Event,
		)
		return false
	}

	select {
	case p.queue <- rec:
		p.logger.Debug("record queued",
			"seq", rec.Seq,
			"event", rec.Event.Event,
		)
		return true
	default:
		p.dropped.Add(1)
		p.logger.Error("record not queued, queue full, record dropped",
			"seq", rec.Seq,
			"event", rec.Event.Event,
		)
		return false
	}
}

// Close signals workers to stop, waits for queued records to drain and then
// closes the sink. It is safe to call more than once.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()

		p.wg.Wait()
		err = p.config.Sink.Close()
	})
	return err
}

// Stats returns the current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Written: p.written.Load(),
		Failed:  p.failed.Load(),
		Dropped: p.dropped.Load(),
	}
}

// worker is the inner worker thread that continuously pulls records off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("sink worker started", "worker_id", id)

	for rec := range p.queue {
		p.processRecord(rec)
	}

	p.logger.Debug("sink worker stopped", "worker_id", id)
}

func (p *Pool) processRecord(rec *sink.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.WriteTimeout)
	defer cancel()

	if err := p.config.Sink.Write(ctx, rec); err != nil {
		p.failed.Add(1)
		p.logger.Error("sink write failed",
			"seq", rec.Seq,
			"error", err,
		)
		return
	}

	p.written.Add(1)
	p.logger.Debug("record written", "seq", rec.Seq, "id", rec.Event.ID)
}
