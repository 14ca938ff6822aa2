package seed

import (
	"testing"

	"bloh/internal/models"
	"bloh/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReference_Idempotent(t *testing.T) {
	db := testutil.NewTestDB(t)

	require.NoError(t, Reference(db))
	require.NoError(t, Reference(db))

	var tags, ingredients int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tags).Error)
	require.NoError(t, db.Model(&models.Ingredient{}).Count(&ingredients).Error)
	assert.Equal(t, int64(len(BuiltInTags)), tags)
	assert.Equal(t, int64(len(BuiltInIngredients)), ingredients)

	var notes models.Tag
	require.NoError(t, db.Where("name = ?", "Kitchen Notes").First(&notes).Error)
	assert.Equal(t, "kitchen-notes", notes.Slug)
}

func TestSeeder_Run(t *testing.T) {
	db := testutil.NewTestDB(t)
	s := NewSeeder(db, Options{NumUsers: 4, NumPosts: 12, SkipBcrypt: true, RandomSeed: 42})

	summary, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Users)
	assert.Equal(t, 12, summary.Posts)
	assert.Equal(t, 8, summary.Subscriptions)

	var posts []models.Post
	require.NoError(t, db.Preload("Tags").Find(&posts).Error)
	require.Len(t, posts, 12)
	for _, p := range posts {
		assert.NotEmpty(t, p.Title)
		assert.NotEmpty(t, p.Tags, "post %d has tags", p.ID)

		var likes, comments int64
		require.NoError(t, db.Model(&models.PostLike{}).Where("post_id = ?", p.ID).Count(&likes).Error)
		require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", p.ID).Count(&comments).Error)
		assert.Equal(t, int(likes), p.LikesCount)
		assert.Equal(t, int(comments), p.CommentsCount)

		if p.PostType != models.PostTypeRecipe {
			continue
		}
		require.NotNil(t, p.Calories)
		var steps []models.RecipeStep
		require.NoError(t, db.Where("post_id = ?", p.ID).Order("step_order").Find(&steps).Error)
		require.NotEmpty(t, steps)
		for i, step := range steps {
			assert.Equal(t, i+1, step.Order)
		}
	}
}

func TestSeeder_ClearAll(t *testing.T) {
	db := testutil.NewTestDB(t)
	s := NewSeeder(db, Options{NumUsers: 2, NumPosts: 3, SkipBcrypt: true, RandomSeed: 7})
	_, err := s.Run()
	require.NoError(t, err)

	require.NoError(t, s.ClearAll())

	for _, model := range []any{&models.User{}, &models.Post{}, &models.Comment{}, &models.RecipeStep{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T", model)
	}
	var tags int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tags).Error)
	assert.NotZero(t, tags, "reference data survives a clear")
}

func TestFactory_CreateUser_Overrides(t *testing.T) {
	db := testutil.NewTestDB(t)
	f := NewFactory(db, Options{SkipBcrypt: true, RandomSeed: 1})

	u, err := f.CreateUser(func(u *models.User) { u.Role = models.RoleAdmin })
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.Equal(t, u.Username+"@example.com", u.Email)

	other, err := f.CreateUser()
	require.NoError(t, err)
	assert.NotEqual(t, u.Username, other.Username)
}
