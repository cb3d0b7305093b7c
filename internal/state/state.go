// Package state persists the watcher's small key-value state between runs:
// the last-used store ids and header blob, and the free-slot baseline the
// change detector diffs against. Stored in ~/.config/fswatcher/state.toml.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// State is the on-disk document. FreeKeys is replaced wholesale after every
// successful poll; it is only ever used to compute notification deltas, never
// to filter what gets displayed.
type State struct {
	StoreIDs  []string          `toml:"store_ids"`
	Headers   map[string]string `toml:"headers"`
	FreeKeys  []string          `toml:"free_keys"`
	UpdatedAt time.Time         `toml:"updated_at"`
}

const defaultStatePath = "~/.config/fswatcher/state.toml"

// DefaultPath returns the default state file location.
func DefaultPath() string {
	return defaultStatePath
}

// Load reads the state file, degrading to empty state when the file is
// missing or unreadable. A cold start with no baseline is expected: the first
// poll treats every free slot as newly free.
func Load(path string) State {
	resolved, err := resolvePath(path)
	if err != nil {
		return State{}
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		return State{}
	}

	var st State
	if err := toml.Unmarshal(raw, &st); err != nil {
		return State{}
	}
	return st
}

// Save writes the state wholesale, creating parent directories as needed.
func Save(path string, st State) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve state path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	st.UpdatedAt = time.Now().UTC()
	raw, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(resolved, raw, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultStatePath
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
