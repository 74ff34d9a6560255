package replay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/papercomputeco/ssetap/pkg/sse"
)

// LoadFixture parses a recorded SSE stream from path. With assignIDs, events
// that carry no id receive a random UUID.
func LoadFixture(ctx context.Context, path string, assignIDs bool) ([]sse.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()

	frames, err := sse.Collect(ctx, sse.NewEventStream(f))
	if err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}

	if assignIDs {
		for i := range frames {
			if frames[i].ID == "" {
				frames[i].ID = uuid.NewString()
			}
		}
	}

	return frames, nil
}

// resumeIndex returns the index of the first frame to send to a client that
// last saw lastID. Frames share an id until the stream sets a new one, so the
// resume point follows the last frame carrying lastID. Unknown ids replay
// from the start.
func resumeIndex(frames []sse.Event, lastID string) int {
	if lastID == "" {
		return 0
	}
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].ID == lastID {
			return i + 1
		}
	}
	return 0
}

func fixtureDir(path string) string {
	return filepath.Dir(filepath.Clean(path))
}

func sameFile(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
