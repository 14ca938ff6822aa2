// Package service holds the business rules behind every API operation.
package service

import (
	"context"
	"log/slog"

	"bloh/internal/media"
	"bloh/internal/middleware"
	"bloh/internal/models"
	"bloh/internal/storage"
)

// Storage prefixes for uploaded images.
const (
	CoverPrefix  = "covers"
	StepPrefix   = "steps"
	AvatarPrefix = "avatars"
)

// imageStore validates uploads and moves them in and out of object storage.
type imageStore struct {
	store     storage.Storage
	validator media.Validator
}

// put stores img under prefix and returns its key.
func (s imageStore) put(ctx context.Context, prefix string, img *media.Image) (string, error) {
	key := storage.NewKey(prefix, img.Ext)
	if err := s.store.Put(ctx, key, img.ContentType, img.Data); err != nil {
		return "", models.NewInternalError(err)
	}
	return key, nil
}

// removeAll deletes keys best-effort; failures are logged.
func (s imageStore) removeAll(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Remove(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove stored image",
				slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

// URL resolves a stored key into a public URL. Empty keys stay empty.
func (s imageStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.store.URL(key)
}
