package repository

import (
	"context"

	"bloh/internal/cache"
	"bloh/internal/models"

	"gorm.io/gorm"
)

// TagRepository defines persistence operations for tags.
type TagRepository interface {
	List(ctx context.Context) ([]models.Tag, error)
	GetByID(ctx context.Context, id uint) (*models.Tag, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Tag, error)
	Exists(ctx context.Context, name, slug string, excludeID uint) (bool, error)
	Create(ctx context.Context, tag *models.Tag) error
	Update(ctx context.Context, tag *models.Tag) error
	Delete(ctx context.Context, id uint) error
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := cache.Aside(ctx, cache.TagListKey, &tags, cache.ReferenceListTTL, func() error {
		return readDB(r.db).WithContext(ctx).Order("name").Find(&tags).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

func (r *tagRepository) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := readDB(r.db).WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, notFoundOr(err, "Tag", id)
	}
	return &tag, nil
}

// FindByIDs returns the tags among ids that exist.
func (r *tagRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

// Exists reports whether another tag already uses name or slug.
func (r *tagRepository) Exists(ctx context.Context, name, slug string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Tag{}).
		Where("(LOWER(name) = LOWER(?) OR slug = ?) AND id <> ?", name, slug, excludeID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *tagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateTags(ctx)
	return nil
}

func (r *tagRepository) Update(ctx context.Context, tag *models.Tag) error {
	if err := r.db.WithContext(ctx).Save(tag).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateTags(ctx)
	return nil
}

// Delete detaches the tag from every post before removing it.
func (r *tagRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_tags WHERE tag_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Tag{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return notFoundOr(err, "Tag", id)
	}
	cache.InvalidateTags(ctx)
	return nil
}
