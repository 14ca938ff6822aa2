// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"

	"bloh/internal/database"
	"bloh/internal/models"

	"gorm.io/gorm"
)

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// notFoundOr converts gorm.ErrRecordNotFound into a NOT_FOUND AppError and wraps
// anything else as internal.
func notFoundOr(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// pageBounds clamps limit/offset to sane values.
func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
