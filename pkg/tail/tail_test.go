package tail_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ssetap/pkg/replay"
	"github.com/papercomputeco/ssetap/pkg/sink"
	"github.com/papercomputeco/ssetap/pkg/sink/worker"
	"github.com/papercomputeco/ssetap/pkg/sse"
	"github.com/papercomputeco/ssetap/pkg/tail"
)

const anthropicFixture = `event: message_start
id: 1
data: {"type":"message_start"}

event: content_block_delta
id: 2
data: {"type":"content_block_delta","delta":{"text":"Hel"}}

event: content_block_delta
id: 3
data: {"type":"content_block_delta","delta":{"text":"lo"}}

event: message_stop
id: 4
data: {"type":"message_stop"}

event: ping
id: 5
data: {}

`

const openAIFixture = `data: {"choices":[{"delta":{"content":"Hi"}}]}

data: [DONE]

`

func replayServer(body string) *httptest.Server {
	dir := GinkgoT().TempDir()
	path := filepath.Join(dir, "stream.sse")
	Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())

	srv, err := replay.New(context.Background(), replay.Config{Fixture: path})
	Expect(err).NotTo(HaveOccurred())

	ts := httptest.NewServer(srv.Handler())
	DeferCleanup(func() {
		ts.Close()
		Expect(srv.Close()).To(Succeed())
	})
	return ts
}

func run(opts tail.Options) (tail.Stats, string, error) {
	t, err := tail.New(opts)
	Expect(err).NotTo(HaveOccurred())

	var out bytes.Buffer
	stats, err := t.Run(context.Background(), &out)
	return stats, out.String(), err
}

// cancelWriter cancels its context after the first write.
type cancelWriter struct {
	w      io.Writer
	cancel context.CancelFunc
}

func (c *cancelWriter) Write(p []byte) (int, error) {
	defer c.cancel()
	return c.w.Write(p)
}

type memorySink struct {
	mu      sync.Mutex
	records []*sink.Record
}

func (m *memorySink) Write(_ context.Context, rec *sink.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memorySink) Close() error { return nil }

var _ = Describe("New", func() {
	It("requires a url", func() {
		_, err := tail.New(tail.Options{})
		Expect(err).To(MatchError(tail.ErrNoURL))
	})

	It("rejects unknown formats", func() {
		_, err := tail.New(tail.Options{URL: "http://x", Format: "yaml"})
		Expect(err).To(MatchError(ContainSubstring(`unknown format: "yaml"`)))
	})
})

var _ = Describe("ParseFormat", func() {
	DescribeTable("accepts known formats",
		func(in string, want tail.Format) {
			got, err := tail.ParseFormat(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("empty", "", tail.FormatText),
		Entry("text", "text", tail.FormatText),
		Entry("upper json", "JSON", tail.FormatJSON),
		Entry("raw", " raw ", tail.FormatRaw),
	)
})

var _ = Describe("Tailer.Run", func() {
	It("renders every event as text until the stream ends", func() {
		ts := replayServer(anthropicFixture)

		stats, out, err := run(tail.Options{URL: ts.URL + "/events"})
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Events).To(Equal(uint64(5)))
		Expect(stats.LastEventID).To(Equal("5"))
		Expect(stats.Terminated).To(BeFalse())

		Expect(out).To(ContainSubstring("content_block_delta id=2"))
		Expect(out).To(ContainSubstring(`  {"type":"message_stop"}`))
		Expect(out).NotTo(ContainSubstring("\x1b["))
	})

	It("stops at a terminating event type without rendering it", func() {
		ts := replayServer(anthropicFixture)

		stats, out, err := run(tail.Options{
			URL:         ts.URL + "/events",
			TerminateOn: []string{"message_stop"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Events).To(Equal(uint64(3)))
		Expect(stats.LastEventID).To(Equal("3"))
		Expect(stats.Terminated).To(BeTrue())
		Expect(out).NotTo(ContainSubstring("message_stop"))
		Expect(out).NotTo(ContainSubstring("ping"))
	})

	It("decodes JSON and stops at the done sentinel without parsing it", func() {
		ts := replayServer(openAIFixture)

		stats, out, err := run(tail.Options{
			URL:      ts.URL + "/events",
			Format:   tail.FormatJSON,
			DoneData: "[DONE]",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Events).To(Equal(uint64(1)))
		Expect(stats.Terminated).To(BeTrue())

		lines := strings.Split(strings.TrimSpace(out), "\n")
		Expect(lines).To(HaveLen(1))

		var got sse.JSONEvent[map[string]any]
		Expect(json.Unmarshal([]byte(lines[0]), &got)).To(Succeed())
		Expect(got.Event).To(Equal("message"))
		Expect(got.Data).To(HaveKey("choices"))
	})

	It("surfaces JSON errors when data is not JSON", func() {
		ts := replayServer(openAIFixture)

		stats, _, err := run(tail.Options{URL: ts.URL + "/events", Format: tail.FormatJSON})
		var syntaxErr *json.SyntaxError
		Expect(errors.As(err, &syntaxErr)).To(BeTrue())
		Expect(stats.Events).To(Equal(uint64(1)))
	})

	It("re-encodes events in raw format", func() {
		ts := replayServer(openAIFixture)

		_, out, err := run(tail.Options{URL: ts.URL + "/events", Format: tail.FormatRaw})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(openAIFixture))
	})

	It("resumes with Last-Event-ID", func() {
		ts := replayServer(anthropicFixture)

		stats, _, err := run(tail.Options{URL: ts.URL + "/events", LastEventID: "3"})
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Events).To(Equal(uint64(2)))
	})

	It("records the raw body", func() {
		ts := replayServer(openAIFixture)

		var rec bytes.Buffer
		_, _, err := run(tail.Options{URL: ts.URL + "/events", Record: &rec})
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.String()).To(Equal(openAIFixture))
	})

	It("forwards records to the worker pool", func() {
		ts := replayServer(anthropicFixture)

		ms := &memorySink{}
		pool, err := worker.NewPool(&worker.Config{Sink: ms, NumWorkers: 1})
		Expect(err).NotTo(HaveOccurred())

		stats, _, err := run(tail.Options{URL: ts.URL + "/events", Pool: pool, TerminateOn: []string{"message_stop"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(pool.Close()).To(Succeed())

		Expect(stats.Forwarded).To(Equal(uint64(3)))
		Expect(ms.records).To(HaveLen(3))
		Expect(ms.records[0].Seq).To(Equal(uint64(1)))
		Expect(ms.records[2].Event.ID).To(Equal("3"))
		Expect(ms.records[2].Source).To(Equal(ts.URL + "/events"))
	})

	It("sends custom headers and the SSE accept header", func() {
		var got http.Header
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, "data: ok\n\n")
		}))
		DeferCleanup(ts.Close)

		_, _, err := run(tail.Options{
			URL:    ts.URL,
			Header: http.Header{"Authorization": []string{"Bearer t"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Get("Accept")).To(Equal("text/event-stream"))
		Expect(got.Get("Authorization")).To(Equal("Bearer t"))
	})

	It("ends without error when the context is cancelled", func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, "id: 1\ndata: first\n\n")
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		}))
		DeferCleanup(ts.Close)

		t, err := tail.New(tail.Options{URL: ts.URL, Format: tail.FormatRaw})
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var out bytes.Buffer
		stats, err := t.Run(ctx, &cancelWriter{w: &out, cancel: cancel})
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Events).To(Equal(uint64(1)))
		Expect(stats.LastEventID).To(Equal("1"))
		Expect(out.String()).To(Equal("id: 1\ndata: first\n\n"))
	})

	It("returns a StatusError for non-200 responses", func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusUnauthorized)
		}))
		DeferCleanup(ts.Close)

		_, _, err := run(tail.Options{URL: ts.URL})
		var statusErr *tail.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(statusErr.Error()).To(ContainSubstring("nope"))
	})

	It("returns an UnavailableError for non event-stream responses", func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, "{}")
		}))
		DeferCleanup(ts.Close)

		_, _, err := run(tail.Options{URL: ts.URL})
		var unavailable *sse.UnavailableError
		Expect(errors.As(err, &unavailable)).To(BeTrue())
		Expect(unavailable.ContentType).To(Equal("application/json"))
	})

	It("styles text output when color is forced", func() {
		ts := replayServer(openAIFixture)
		color := true

		_, out, err := run(tail.Options{URL: ts.URL + "/events", Color: &color})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("\x1b["))
	})
})

var _ = Describe("Summary", func() {
	It("describes the stats", func() {
		s := tail.Summary(tail.Stats{Events: 2, LastEventID: "9", Terminated: true, Forwarded: 2})
		Expect(s).To(ContainSubstring("2 events"))
		Expect(s).To(ContainSubstring("last id 9"))
		Expect(s).To(ContainSubstring("terminated"))
		Expect(s).To(ContainSubstring("2 forwarded, 0 dropped"))
	})
})
