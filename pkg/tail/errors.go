package tail

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/ssetap/pkg/utils"
)

// ErrNoURL is returned by New when Options.URL is empty.
var ErrNoURL = errors.New("tail requires a url")

// StatusError reports a non-200 response from the SSE endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, utils.Truncate(e.Body, 200))
}
