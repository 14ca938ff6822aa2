package models

import (
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Tag is shared reference data attached to posts through post_tags.
type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Slug  string `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Color string `gorm:"size:7" json:"color"`
}

// BeforeSave derives the slug from the name when none was supplied.
func (t *Tag) BeforeSave(_ *gorm.DB) error {
	if t.Slug == "" {
		t.Slug = TagSlug(t.Name)
	}
	return nil
}

// TagSlug is the slug a tag named name receives when saved without one.
func TagSlug(name string) string {
	return slug.Make(name)
}
