package repository

import (
	"context"
	"time"

	"bloh/internal/models"
	"bloh/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	Update(ctx context.Context, post *models.Post, replaceTags bool) error
	UpdateStatus(ctx context.Context, id uint, status models.PostStatus) error
	Delete(ctx context.Context, id uint) error
	Feed(ctx context.Context, q FeedQuery) ([]models.Post, int64, error)
	ToggleLike(ctx context.Context, userID, postID uint) (bool, int, error)
	IncrementViews(ctx context.Context, postID uint) (int, error)
	ViewCount(ctx context.Context, postID uint) (int, error)
	ForReport(ctx context.Context, f ReportFilter) ([]models.Post, error)
}

// ReportFilter selects posts for the admin export. DateTo is inclusive by day.
type ReportFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Statuses []models.PostStatus
	PostType models.PostType
	AuthorID uint
	TagIDs   []uint
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// postUpdatableColumns excludes the counters, which only change through conditional updates.
var postUpdatableColumns = []string{
	"post_type", "status", "title", "excerpt", "content", "cover_image",
	"calories", "cooking_time", "updated_at",
}

// Create inserts post and links post.Tags, which must already exist.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	tags := post.Tags
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		if len(tags) > 0 {
			return tx.Model(post).Omit("Tags.*").Association("Tags").Replace(tags)
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := readDB(r.db).WithContext(ctx).
		Select("posts.*, "+isLikedColumn+", 0 AS matched_tags", viewerID).
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("post_ingredients.id") }).
		Preload("Ingredients.Ingredient").
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order, id") }).
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

// Update writes the editable columns of post. When replaceTags is set the tag links
// are replaced by post.Tags.
func (r *postRepository) Update(ctx context.Context, post *models.Post, replaceTags bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post.UpdatedAt = time.Now()
		if err := tx.Model(post).Omit(clause.Associations).Select(postUpdatableColumns).Updates(post).Error; err != nil {
			return err
		}
		if replaceTags {
			return tx.Model(post).Omit("Tags.*").Association("Tags").Replace(post.Tags)
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) UpdateStatus(ctx context.Context, id uint, status models.PostStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// Delete removes the post and every row that belongs to it.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := []any{
			&models.PostLike{}, &models.PostIngredient{}, &models.RecipeStep{}, &models.Comment{},
		}
		for _, m := range owned {
			if err := tx.Where("post_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM post_tags WHERE post_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return notFoundOr(err, "Post", id)
}

// ToggleLike flips userID's like on postID and returns the new state with the
// stored count re-read after the change.
func (r *postRepository) ToggleLike(ctx context.Context, userID, postID uint) (bool, int, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "ToggleLike", "post_likes")
	var (
		liked bool
		likes int
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}

		removed := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostLike{})
		if removed.Error != nil {
			return removed.Error
		}
		if removed.RowsAffected > 0 {
			if err := tx.Model(&models.Post{}).
				Where("id = ? AND likes_count > 0", postID).
				UpdateColumn("likes_count", gorm.Expr("likes_count - 1")).Error; err != nil {
				return err
			}
		} else {
			liked = true
			added := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.PostLike{UserID: userID, PostID: postID})
			if added.Error != nil {
				return added.Error
			}
			if added.RowsAffected > 0 {
				if err := tx.Model(&models.Post{}).
					Where("id = ?", postID).
					UpdateColumn("likes_count", gorm.Expr("likes_count + 1")).Error; err != nil {
					return err
				}
			}
		}

		return tx.Model(&models.Post{}).Where("id = ?", postID).Select("likes_count").Scan(&likes).Error
	})
	observability.EndSpan(span, err)
	if err != nil {
		return false, 0, notFoundOr(err, "Post", postID)
	}
	return liked, likes, nil
}

func (r *postRepository) IncrementViews(ctx context.Context, postID uint) (int, error) {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("views_count", gorm.Expr("views_count + 1"))
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, models.NewNotFoundError("Post", postID)
	}
	return r.ViewCount(ctx, postID)
}

func (r *postRepository) ViewCount(ctx context.Context, postID uint) (int, error) {
	var views []int
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		Pluck("views_count", &views).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if len(views) == 0 {
		return 0, models.NewNotFoundError("Post", postID)
	}
	return views[0], nil
}

func (r *postRepository) ForReport(ctx context.Context, f ReportFilter) ([]models.Post, error) {
	db := readDB(r.db).WithContext(ctx).Model(&models.Post{})
	if f.DateFrom != nil {
		db = db.Where("posts.created_at >= ?", startOfDay(*f.DateFrom))
	}
	if f.DateTo != nil {
		db = db.Where("posts.created_at < ?", startOfDay(*f.DateTo).AddDate(0, 0, 1))
	}
	if len(f.Statuses) > 0 {
		db = db.Where("posts.status IN ?", f.Statuses)
	}
	if f.PostType.Valid() {
		db = db.Where("posts.post_type = ?", f.PostType)
	}
	if f.AuthorID != 0 {
		db = db.Where("posts.author_id = ?", f.AuthorID)
	}
	if len(f.TagIDs) > 0 {
		db = db.Where("EXISTS (SELECT 1 FROM post_tags pt WHERE pt.post_id = posts.id AND pt.tag_id IN ?)", f.TagIDs)
	}

	var posts []models.Post
	if err := db.Preload("Author").Preload("Tags").Order(stableOrder).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
