// Package prefs persists the handful of surface preferences that survive a
// restart (the last applied theme and view) in a small diskv store.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"github.com/vk/starmirror/internal/ctxlog"
)

const (
	KeyTheme = "theme"
	KeyView  = "view"
)

// Store is a string key/value store backed by diskv.
type Store struct {
	d        *diskv.Diskv
	basePath string
}

// Open creates a Store rooted at dir, expanding a leading "~".
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("prefs: empty state directory")
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("prefs: resolve home directory: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prefs: create %s: %w", dir, err)
	}
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     dir,
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 64 * 1024,
		}),
		basePath: dir,
	}, nil
}

// BasePath returns the directory the store writes to.
func (s *Store) BasePath() string { return s.basePath }

// Load returns the stored value for key. A missing key is not an error.
func (s *Store) Load(ctx context.Context, key string) (string, bool) {
	val, err := s.d.Read(key)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			ctxlog.FromContext(ctx).Warn("Failed to read preference.", "key", key, "error", err)
		}
		return "", false
	}
	return string(val), true
}

// Save writes value under key.
func (s *Store) Save(ctx context.Context, key, value string) error {
	if err := s.d.Write(key, []byte(value)); err != nil {
		return fmt.Errorf("prefs: write %q: %w", key, err)
	}
	ctxlog.FromContext(ctx).Debug("Preference saved.", "key", key, "value", value)
	return nil
}
