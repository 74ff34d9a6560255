// Package dotdir resolves the .ssetap/ directory that holds config.toml.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the ssetap directory.
	DirName = ".ssetap"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .ssetap/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.ssetap/ dir
//  3. Home ~/.ssetap/ dir
//
// If none is found, Target returns an empty string and no error.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating ssetap directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if local := filepath.Join(cwd, DirName); isDir(local) {
		return filepath.Abs(local)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	if global := filepath.Join(home, DirName); isDir(global) {
		return filepath.Abs(global)
	}

	return "", nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
