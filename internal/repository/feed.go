package repository

import (
	"context"
	"fmt"

	"bloh/internal/models"
	"bloh/internal/observability"

	"gorm.io/gorm"
)

// Feed orderings accepted by FeedQuery.Ordering.
const (
	OrderLikes         = "likes"
	OrderLikesDesc     = "-likes"
	OrderViews         = "views"
	OrderViewsDesc     = "-views"
	OrderRelevance     = "relevance"
	OrderRelevanceDesc = "-relevance"
)

// FeedQuery describes one page of the post feed as seen by a viewer.
// A zero ViewerID is an anonymous viewer.
type FeedQuery struct {
	ViewerID      uint
	IncludeHidden bool
	PostType      models.PostType
	MaxTime       *int
	MaxCalories   *int
	TagSlugs      []string
	AuthorID      uint
	Ordering      string
	Limit         int
	Offset        int
}

const (
	isLikedColumn = "EXISTS (SELECT 1 FROM post_likes pl WHERE pl.post_id = posts.id AND pl.user_id = ?) AS is_liked"
	matchedColumn = "(SELECT COUNT(DISTINCT t.slug) FROM post_tags pt JOIN tags t ON t.id = pt.tag_id " +
		"WHERE pt.post_id = posts.id AND t.slug IN ?) AS matched_tags"
	tagFilter = "EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id " +
		"WHERE pt.post_id = posts.id AND t.slug IN ?)"
	stableOrder = "posts.created_at DESC, posts.id DESC"
)

// Feed returns the requested page together with the total number of matching posts.
func (r *postRepository) Feed(ctx context.Context, q FeedQuery) ([]models.Post, int64, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Feed", "posts")
	done := observability.TrackQuery("feed", "posts")
	defer done()

	db := readDB(r.db).WithContext(ctx)

	var total int64
	if err := applyFeedFilters(db.Model(&models.Post{}), q).Count(&total).Error; err != nil {
		observability.EndSpan(span, err)
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	if total > 0 {
		limit, offset := pageBounds(q.Limit, q.Offset)
		query := applyFeedOrdering(applyFeedSelect(applyFeedFilters(db.Model(&models.Post{}), q), q), q.Ordering)
		err := query.
			Preload("Author").
			Preload("Tags").
			Limit(limit).
			Offset(offset).
			Find(&posts).Error
		if err != nil {
			observability.EndSpan(span, err)
			return nil, 0, models.NewInternalError(err)
		}
	}

	observability.EndSpan(span, nil)
	return posts, total, nil
}

func applyFeedFilters(db *gorm.DB, q FeedQuery) *gorm.DB {
	if !q.IncludeHidden {
		db = db.Where("posts.status = ?", models.PostStatusPublished)
	}
	if q.PostType.Valid() {
		db = db.Where("posts.post_type = ?", q.PostType)
	}
	if q.MaxTime != nil {
		db = db.Where("posts.cooking_time <= ?", *q.MaxTime)
	}
	if q.MaxCalories != nil {
		db = db.Where("posts.calories <= ?", *q.MaxCalories)
	}
	if q.AuthorID != 0 {
		db = db.Where("posts.author_id = ?", q.AuthorID)
	}
	if len(q.TagSlugs) > 0 {
		db = db.Where(tagFilter, q.TagSlugs)
	}
	return db
}

// applyFeedSelect adds the per-viewer columns. No user has id 0, so anonymous
// viewers get is_liked = false from the same expression.
func applyFeedSelect(db *gorm.DB, q FeedQuery) *gorm.DB {
	if len(q.TagSlugs) > 0 {
		return db.Select("posts.*, "+isLikedColumn+", "+matchedColumn, q.ViewerID, q.TagSlugs)
	}
	return db.Select("posts.*, "+isLikedColumn+", 0 AS matched_tags", q.ViewerID)
}

func applyFeedOrdering(db *gorm.DB, ordering string) *gorm.DB {
	var primary string
	switch ordering {
	case OrderLikes:
		primary = "posts.likes_count ASC"
	case OrderLikesDesc:
		primary = "posts.likes_count DESC"
	case OrderViews:
		primary = "posts.views_count ASC"
	case OrderViewsDesc:
		primary = "posts.views_count DESC"
	case OrderRelevance:
		primary = "matched_tags DESC"
	case OrderRelevanceDesc:
		primary = "matched_tags ASC"
	}
	if primary == "" {
		return db.Order(stableOrder)
	}
	return db.Order(fmt.Sprintf("%s, %s", primary, stableOrder))
}

// ValidOrdering reports whether ordering names a supported feed ordering.
func ValidOrdering(ordering string) bool {
	switch ordering {
	case OrderLikes, OrderLikesDesc, OrderViews, OrderViewsDesc, OrderRelevance, OrderRelevanceDesc:
		return true
	}
	return false
}
