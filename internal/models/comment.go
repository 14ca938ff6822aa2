package models

import "time"

// Comment is a remark on a post, optionally replying to another comment of the same post.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	AuthorID        uint      `gorm:"not null;index" json:"author_id"`
	Author          User      `gorm:"foreignKey:AuthorID" json:"author"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	ParentCommentID *uint     `gorm:"index" json:"parent_comment_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
