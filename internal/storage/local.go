package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stores objects as files below a root directory.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates root if needed.
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Local{root: root, baseURL: baseURL}, nil
}

func (l *Local) Put(_ context.Context, key, _ string, data []byte) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	full := filepath.Join(l.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

// Remove deletes key; a missing object is not an error.
func (l *Local) Remove(_ context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.root, filepath.FromSlash(k)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (l *Local) URL(key string) string {
	return joinURL(l.baseURL, key)
}
