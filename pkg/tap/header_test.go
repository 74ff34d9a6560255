package tap

import (
	"net/http"
	"net/http/httptest"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("setUpstreamRequestHeaders", func() {
	var (
		app *fiber.App
		got http.Header
	)

	BeforeEach(func() {
		app = fiber.New()
		got = nil
		app.Get("/events", func(c *fiber.Ctx) error {
			req, _ := http.NewRequest(http.MethodGet, "http://upstream/events", nil)
			setUpstreamRequestHeaders(c, req)
			got = req.Header
			return c.SendStatus(fiber.StatusOK)
		})
	})

	AfterEach(func() {
		app.Shutdown()
	})

	It("forwards end-to-end headers", func() {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set("Authorization", "Bearer token123")
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Last-Event-ID", "42")

		resp, err := app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		Expect(got.Get("Authorization")).To(Equal("Bearer token123"))
		Expect(got.Get("Accept")).To(Equal("text/event-stream"))
		Expect(got.Get("Last-Event-ID")).To(Equal("42"))
	})

	It("strips hop-by-hop and transport managed headers", func() {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set("Connection", "keep-alive")
		req.Header.Set("Accept-Encoding", "gzip, br")

		resp, err := app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		Expect(got.Get("Connection")).To(BeEmpty())
		Expect(got.Get("Accept-Encoding")).To(BeEmpty())
		Expect(got.Get("Host")).To(BeEmpty())
	})
})

var _ = Describe("setClientResponseHeaders", func() {
	It("copies upstream headers except encoding and length", func() {
		app := fiber.New()
		defer app.Shutdown()

		upstream := &http.Response{Header: http.Header{
			"Content-Type":     {"text/event-stream"},
			"Cache-Control":    {"no-cache"},
			"X-Request-Id":     {"a", "b"},
			"Content-Encoding": {"gzip"},
			"Content-Length":   {"120"},
		}}

		app.Get("/", func(c *fiber.Ctx) error {
			setClientResponseHeaders(c, upstream)
			return c.SendString("ok")
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
		Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))
		Expect(resp.Header.Get("X-Request-Id")).To(Equal("a, b"))
		Expect(resp.Header.Get("Content-Encoding")).To(BeEmpty())
	})
})
