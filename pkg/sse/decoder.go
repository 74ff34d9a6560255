package sse

import (
	"context"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeBufferSize is the largest text chunk produced by one read.
const decodeBufferSize = 32 * 1024

// NewTextDecoder returns a stream of UTF-8 text chunks read from r.
//
// Multi-byte sequences split across reads are reassembled before they are
// emitted, a leading byte order mark is dropped and invalid bytes decode to
// U+FFFD. If r is an io.Closer it is closed when the stream is cancelled.
func NewTextDecoder(r io.Reader) *Stream[string] {
	src := &textSource{
		r:   transform.NewReader(r, unicode.UTF8BOM.NewDecoder()),
		buf: make([]byte, decodeBufferSize),
	}
	if c, ok := r.(io.Closer); ok {
		src.closer = c
	}

	return NewStream[string](src)
}

type textSource struct {
	r      io.Reader
	closer io.Closer
	buf    []byte
	eof    bool

	// pending is a read error held back until the text read with it has
	// been emitted.
	pending error
}

func (t *textSource) Next(ctx context.Context) (string, error) {
	for {
		if t.eof {
			return "", io.EOF
		}
		if t.pending != nil {
			return "", t.pending
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := t.r.Read(t.buf)
		if err == io.EOF {
			t.eof = true
		} else if err != nil {
			if n == 0 {
				return "", err
			}
			t.pending = err
		}

		if n > 0 {
			return string(t.buf[:n]), nil
		}
	}
}

func (t *textSource) Cancel(_ error) error {
	t.eof = true
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}
