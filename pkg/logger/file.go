package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// OpenFile returns a JSON logger appending to path. Debug also turns on
// source locations. The caller closes the returned file.
func OpenFile(path string, debug bool) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	return New(
		WithDebug(debug),
		WithJSON(true),
		WithSource(debug),
		WithWriter(f),
	), f, nil
}

// ForCLI returns the logger a command uses: pretty records on errOut and,
// when logFile is set, JSON records appended to that file as well. The
// returned func releases the file.
func ForCLI(errOut io.Writer, debug bool, logFile string) (*slog.Logger, func(), error) {
	l := New(
		WithDebug(debug),
		WithPretty(true),
		WithWriter(errOut),
	)
	if logFile == "" {
		return l, func() {}, nil
	}

	fl, f, err := OpenFile(logFile, debug)
	if err != nil {
		return nil, nil, err
	}
	return Multi(l, fl), func() { _ = f.Close() }, nil
}
