package repository

import (
	"context"
	"time"

	"bloh/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, int64, error)
	UpdateContent(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, comment *models.Comment) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts the comment and refreshes the post's comments_count.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author").Create(comment).Error; err != nil {
			return err
		}
		return recountComments(tx, comment.PostID)
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := readDB(r.db).WithContext(ctx).Preload("Author").First(&comment, id).Error; err != nil {
		return nil, notFoundOr(err, "Comment", id)
	}
	return &comment, nil
}

// ListByPost returns a post's comments oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, int64, error) {
	db := readDB(r.db).WithContext(ctx)
	var total int64
	if err := db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	limit, offset = pageBounds(limit, offset)
	var comments []models.Comment
	err := db.Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, total, nil
}

// UpdateContent writes comment.Content. Post and parent never change.
func (r *commentRepository) UpdateContent(ctx context.Context, comment *models.Comment) error {
	res := r.db.WithContext(ctx).Model(comment).Select("content", "updated_at").Updates(&models.Comment{
		Content:   comment.Content,
		UpdatedAt: time.Now(),
	})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", comment.ID)
	}
	return nil
}

// Delete removes the comment with all of its replies, transitively.
func (r *commentRepository) Delete(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []uint{comment.ID}
		frontier := []uint{comment.ID}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&models.Comment{}).
				Where("parent_comment_id IN ?", frontier).
				Pluck("id", &children).Error; err != nil {
				return err
			}
			ids = append(ids, children...)
			frontier = children
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return recountComments(tx, comment.PostID)
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func recountComments(tx *gorm.DB, postID uint) error {
	return tx.Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("comments_count", gorm.Expr("(SELECT COUNT(*) FROM comments WHERE comments.post_id = ?)", postID)).
		Error
}
