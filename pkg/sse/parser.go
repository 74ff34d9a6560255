package sse

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// EventParser accumulates SSE field lines and emits an Event at every blank
// line that follows at least one "data:" field.
type EventParser struct {
	state eventState
}

// eventState is the field accumulator for the event being built.
// id and retry survive emission; event and data do not.
type eventState struct {
	event string
	id    *string
	retry *int
	data  []string
}

// NewEventParser returns an EventParser in its initial state.
func NewEventParser() *EventParser {
	p := &EventParser{}
	p.state.clear()
	return p
}

// Transform processes a single line.
func (p *EventParser) Transform(line string, c *Controller[Event]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
		if err != nil {
			p.state.clear()
			err = fmt.Errorf("sse: parsing event: %w", err)
		}
	}()

	// A blank line signals the end of the current event.
	if strings.TrimSpace(line) == "" {
		if len(p.state.data) == 0 {
			return nil
		}
		if err := c.Enqueue(p.state.build()); err != nil {
			return err
		}
		p.state.next()
		return nil
	}

	// Lines starting with ':' are comments.
	if strings.HasPrefix(line, ":") {
		return nil
	}

	p.parseField(line)
	return nil
}

// Flush emits a trailing event when the stream ended without a blank line.
func (p *EventParser) Flush(c *Controller[Event]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
		p.state.clear()
		if err != nil {
			err = fmt.Errorf("sse: flushing event: %w", err)
		}
	}()

	if len(p.state.data) == 0 {
		return nil
	}
	return c.Enqueue(p.state.build())
}

// parseField splits "field:value" at the first colon and applies it.
// At most one space after the colon is stripped before trimming.
func (p *EventParser) parseField(line string) {
	var field, value string

	if before, after, ok := strings.Cut(line, ":"); ok {
		field = strings.TrimSpace(strings.ToLower(before))
		value = strings.TrimSpace(strings.TrimPrefix(after, " "))
	} else {
		// Line with no colon: the entire line is the field name with
		// an empty value.
		field = strings.ToLower(line)
	}

	switch field {
	case "event":
		p.state.event = value
	case "data":
		p.state.data = append(p.state.data, value)
	case "id":
		p.state.id = &value
	case "retry":
		if retry, ok := parseRetry(value); ok {
			p.state.retry = &retry
		}
	default:
		// Unknown fields are ignored.
	}
}

func (s *eventState) build() Event {
	ev := Event{
		Event: s.event,
		Data:  strings.Join(s.data, "\n"),
		Retry: copyRetry(s.retry),
	}
	if ev.Event == "" {
		ev.Event = DefaultEventType
	}
	if s.id != nil {
		ev.ID = *s.id
	}
	return ev
}

// next prepares for the following event, keeping id and retry.
func (s *eventState) next() {
	s.event = DefaultEventType
	s.data = nil
}

func (s *eventState) clear() {
	s.next()
	s.id = nil
	s.retry = nil
}

// parseRetry reads a base-10 integer prefix: an optional sign followed by at
// least one digit. Anything after the digits is ignored ("3000ms" is 3000).
// Values beyond the range of int are clamped to math.MaxInt or math.MinInt.
func parseRetry(value string) (int, bool) {
	end := 0
	if end < len(value) && (value[end] == '+' || value[end] == '-') {
		end++
	}

	digits := end
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	// ParseInt returns the clamped value alongside ErrRange.
	n, err := strconv.ParseInt(value[:end], 10, strconv.IntSize)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return int(n), true
}

// ParseEvents pipes a line stream through a new EventParser.
func ParseEvents(lines *Stream[string]) *Stream[Event] {
	return Pipe[string, Event](lines, NewEventParser())
}

// NewEventStream builds the full decoding pipeline over a raw SSE byte stream.
func NewEventStream(r io.Reader) *Stream[Event] {
	return ParseEvents(SplitLines(NewTextDecoder(r)))
}
