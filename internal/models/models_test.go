package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagSlug_DeterministicAndIdempotent(t *testing.T) {
	tag := &Tag{Name: "Quick Breakfast"}
	assert.NoError(t, tag.BeforeSave(nil))
	assert.Equal(t, "quick-breakfast", tag.Slug)

	// A second save keeps the stored slug untouched.
	assert.NoError(t, tag.BeforeSave(nil))
	assert.Equal(t, "quick-breakfast", tag.Slug)
	assert.Equal(t, tag.Slug, TagSlug("Quick Breakfast"))
	assert.Equal(t, tag.Slug, TagSlug(tag.Slug))
}

func TestTagBeforeSave_KeepsExplicitSlug(t *testing.T) {
	tag := &Tag{Name: "Vegan", Slug: "plant-based"}
	assert.NoError(t, tag.BeforeSave(nil))
	assert.Equal(t, "plant-based", tag.Slug)
}

func TestUserIsAdmin(t *testing.T) {
	tests := []struct {
		name string
		user User
		want bool
	}{
		{"plain user", User{Role: RoleUser}, false},
		{"admin role", User{Role: RoleAdmin}, true},
		{"staff flag", User{Role: RoleUser, IsStaff: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.IsAdmin())
		})
	}
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, PostTypeRecipe.Valid())
	assert.True(t, PostTypeArticle.Valid())
	assert.False(t, PostType("video").Valid())
	assert.True(t, PostStatusArchived.Valid())
	assert.False(t, PostStatus("deleted").Valid())
	assert.False(t, Role("owner").Valid())
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodeForbidden, ErrorCode(NewForbiddenError("nope")))
	assert.Equal(t, CodeValidation, ErrorCode(NewFieldValidationError("title", "required")))
	assert.Equal(t, "", ErrorCode(assert.AnError))
}
