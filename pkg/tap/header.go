package tap

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// skipRequest is the set of client request headers not forwarded upstream.
var skipRequest = map[string]struct{}{
	// Hop-by-hop.
	"Connection": {},

	// http.Transport sets Host from the upstream URL.
	"Host": {},

	// Stripped so http.Transport negotiates gzip itself and hands the tap a
	// decompressed body to parse.
	"Accept-Encoding": {},
}

// skipResponse is the set of upstream response headers not copied back to the
// client.
var skipResponse = map[string]struct{}{
	"Connection":        {},
	"Transfer-Encoding": {},

	// The body the client receives is the decompressed upstream body.
	"Content-Encoding": {},
	"Content-Length":   {},
}

// setUpstreamRequestHeaders copies the client's request headers onto the
// outgoing upstream request.
func setUpstreamRequestHeaders(c *fiber.Ctx, req *http.Request) {
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := string(key)
		if _, skip := skipRequest[k]; !skip {
			req.Header.Add(k, string(value))
		}
	})
}

// setClientResponseHeaders copies the upstream response headers onto the
// client response.
func setClientResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for k, v := range resp.Header {
		if _, skip := skipResponse[k]; !skip {
			c.Set(k, strings.Join(v, ", "))
		}
	}
}
