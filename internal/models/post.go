package models

import "time"

// PostType distinguishes recipes from plain articles.
type PostType string

const (
	PostTypeRecipe  PostType = "recipe"
	PostTypeArticle PostType = "article"
)

// Valid reports whether t is a known post type.
func (t PostType) Valid() bool {
	return t == PostTypeRecipe || t == PostTypeArticle
}

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusArchived:
		return true
	}
	return false
}

// Post is a recipe or an article.
// LikesCount, CommentsCount and ViewsCount are stored counters kept equal to the
// cardinality of their relations by conditional updates.
type Post struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	PostType      PostType         `gorm:"size:16;not null;index" json:"post_type"`
	Status        PostStatus       `gorm:"size:16;not null;index" json:"status"`
	Title         string           `gorm:"size:255;not null" json:"title"`
	Excerpt       string           `gorm:"type:text" json:"excerpt"`
	Content       string           `gorm:"type:text" json:"content"`
	CoverImage    string           `json:"cover_image"`
	AuthorID      uint             `gorm:"not null;index" json:"author_id"`
	Author        User             `gorm:"foreignKey:AuthorID" json:"author"`
	Calories      *int             `json:"calories"`
	CookingTime   *int             `json:"cooking_time"`
	LikesCount    int              `gorm:"not null" json:"likes_count"`
	CommentsCount int              `gorm:"not null" json:"comments_count"`
	ViewsCount    int              `gorm:"not null" json:"views_count"`
	Tags          []Tag            `gorm:"many2many:post_tags;" json:"tags"`
	Ingredients   []PostIngredient `gorm:"foreignKey:PostID" json:"ingredients,omitempty"`
	Steps         []RecipeStep     `gorm:"foreignKey:PostID" json:"steps,omitempty"`
	// IsLiked and MatchedTags are computed per viewer by the feed query.
	IsLiked     bool      `gorm:"->;-:migration" json:"is_liked"`
	MatchedTags int       `gorm:"->;-:migration" json:"matched_tags"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsPublished reports whether the post is visible to everyone.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// PostLike records that UserID liked PostID. The pair is the primary key.
type PostLike struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName pins the like relation table name.
func (PostLike) TableName() string {
	return "post_likes"
}
