// Package storage persists uploaded media objects on the local filesystem or an S3-compatible store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"bloh/internal/config"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// Storage is a flat object store addressed by slash-separated keys.
type Storage interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

// NewKey returns a fresh object key under prefix with the given extension (".jpg").
func NewKey(prefix, ext string) string {
	return path.Join(prefix, uuid.NewString()+ext)
}

// New builds the storage backend selected by MEDIA_BACKEND.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch strings.ToLower(cfg.MediaBackend) {
	case "s3":
		s, err := NewS3(S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.S3Bucket,
			BaseURL:   cfg.MediaBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 storage: %w", err)
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("s3 bucket: %w", err)
		}
		return s, nil
	default:
		return NewLocal(cfg.MediaDir, cfg.MediaBaseURL)
	}
}

func cleanKey(key string) (string, error) {
	k := path.Clean("/" + key)[1:]
	if k == "" || k != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return k, nil
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}
