package tail

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/papercomputeco/ssetap/pkg/sse"
)

// Format selects how events are written to the output.
type Format string

const (
	// FormatText prints one human readable block per event.
	FormatText Format = "text"

	// FormatJSON prints one JSON object per line. Event data must be JSON.
	FormatJSON Format = "json"

	// FormatRaw re-encodes events in SSE wire format.
	FormatRaw Format = "raw"
)

// ParseFormat validates a format name. Empty means FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatRaw:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format: %q (available: text, json, raw)", s)
	}
}

var (
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	typeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	retryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	dataStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

type textRenderer struct {
	w     io.Writer
	color bool
	now   func() time.Time
}

func (r *textRenderer) style(s lipgloss.Style, v string) string {
	if !r.color {
		return v
	}
	return s.Render(v)
}

func (r *textRenderer) render(ev sse.Event) error {
	var b strings.Builder

	b.WriteString(r.style(timeStyle, r.now().Format("15:04:05.000")))
	b.WriteString(" ")
	b.WriteString(r.style(typeStyle, ev.Event))
	if ev.ID != "" {
		b.WriteString(" ")
		b.WriteString(r.style(idStyle, "id="+ev.ID))
	}
	if ev.Retry != nil {
		b.WriteString(" ")
		b.WriteString(r.style(retryStyle, fmt.Sprintf("retry=%dms", *ev.Retry)))
	}
	b.WriteString("\n")

	for line := range strings.SplitSeq(ev.Data, "\n") {
		b.WriteString("  ")
		b.WriteString(r.style(dataStyle, line))
		b.WriteString("\n")
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

type jsonRenderer struct {
	enc *json.Encoder
}

func newJSONRenderer(w io.Writer) *jsonRenderer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &jsonRenderer{enc: enc}
}

func (r *jsonRenderer) render(ev sse.JSONEvent[json.RawMessage]) error {
	return r.enc.Encode(ev)
}
