package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// WriteEvent writes ev to w in wire format, terminated by a blank line.
// The event field is omitted for DefaultEventType and the id field when empty,
// so WriteEvent followed by the parser yields ev again.
func WriteEvent(w io.Writer, ev Event) error {
	bw := bufio.NewWriter(w)

	if ev.ID != "" {
		writeField(bw, "id", ev.ID)
	}
	if ev.Event != "" && ev.Event != DefaultEventType {
		writeField(bw, "event", ev.Event)
	}
	if ev.Retry != nil {
		writeField(bw, "retry", strconv.Itoa(*ev.Retry))
	}
	for line := range strings.SplitSeq(ev.Data, "\n") {
		writeField(bw, "data", line)
	}
	_ = bw.WriteByte('\n')

	return bw.Flush()
}

func writeField(bw *bufio.Writer, name, value string) {
	_, _ = bw.WriteString(name)
	_, _ = bw.WriteString(": ")
	_, _ = bw.WriteString(value)
	_ = bw.WriteByte('\n')
}
