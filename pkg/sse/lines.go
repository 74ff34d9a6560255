package sse

import "strings"

// LineSplitter splits arbitrary text chunks into complete lines on "\n".
//
// Only "\n" terminates a line: a "\r" before it stays part of the line.
// A trailing partial line is emitted on flush when it is non-empty.
type LineSplitter struct {
	buf string
}

// NewLineSplitter returns a LineSplitter with an empty buffer.
func NewLineSplitter() *LineSplitter {
	return &LineSplitter{}
}

func (l *LineSplitter) Transform(chunk string, c *Controller[string]) error {
	l.buf += chunk

	lines := strings.Split(l.buf, "\n")
	l.buf = lines[len(lines)-1]

	for _, line := range lines[:len(lines)-1] {
		if err := c.Enqueue(line); err != nil {
			return err
		}
	}
	return nil
}

func (l *LineSplitter) Flush(c *Controller[string]) error {
	if l.buf == "" {
		return nil
	}

	line := l.buf
	l.buf = ""
	return c.Enqueue(line)
}

// SplitLines pipes a text stream through a new LineSplitter.
func SplitLines(text *Stream[string]) *Stream[string] {
	return Pipe[string, string](text, NewLineSplitter())
}
