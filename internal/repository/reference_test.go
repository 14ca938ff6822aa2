package repository

import (
	"context"
	"testing"

	"bloh/internal/cache"
	"bloh/internal/models"
	"bloh/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagRepository_CRUDAndDetach(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewTagRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	tag := &models.Tag{Name: "Quick Breakfast", Color: "#ff0000"}
	require.NoError(t, repo.Create(ctx, tag))
	assert.Equal(t, "quick-breakfast", tag.Slug)

	exists, err := repo.Exists(ctx, "quick breakfast", "other", 0)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, "Quick Breakfast", "quick-breakfast", tag.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	post := createPost(t, posts, createUser(t, db, "author"), withTags(*tag))

	found, err := repo.FindByIDs(ctx, []uint{tag.ID, 999})
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, repo.Delete(ctx, tag.ID))
	got, err := posts.GetByID(ctx, post.ID, 0)
	require.NoError(t, err, "post survives tag deletion")
	assert.Empty(t, got.Tags)

	assert.Equal(t, models.CodeNotFound, models.ErrorCode(repo.Delete(ctx, tag.ID)))
}

func TestTagRepository_ListIsCached(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, rdb := testutil.NewTestRedis(t)
	cache.SetClient(rdb)
	t.Cleanup(func() { cache.SetClient(nil) })

	repo := NewTagRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &models.Tag{Name: "Soup"}))

	tags, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.True(t, rdb.Exists(ctx, cache.TagListKey).Val() == 1)

	// Written behind the repository's back, so only the cached list is served.
	require.NoError(t, db.Create(&models.Tag{Name: "Stew"}).Error)
	tags, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)

	require.NoError(t, repo.Create(ctx, &models.Tag{Name: "Salad"}))
	tags, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 3)
}

func TestIngredientRepository_DeleteRemovesPostRows(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewIngredientRepository(db)
	recipes := NewRecipeRepository(db)
	ctx := context.Background()
	post := createPost(t, NewPostRepository(db), createUser(t, db, "author"))

	salt := &models.Ingredient{Name: "Salt"}
	require.NoError(t, repo.Create(ctx, salt))
	_, err := recipes.AddIngredients(ctx, post.ID, []IngredientItem{{IngredientID: salt.ID, Quantity: ptr("1 tsp")}}, false)
	require.NoError(t, err)

	missing, err := repo.MissingIDs(ctx, []uint{salt.ID, 41, 42})
	require.NoError(t, err)
	assert.Equal(t, []uint{41, 42}, missing)

	dup, err := repo.ExistsByName(ctx, "salt", 0)
	require.NoError(t, err)
	assert.True(t, dup)

	require.NoError(t, repo.Delete(ctx, salt.ID))
	rows, err := recipes.ListIngredients(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = repo.GetByID(ctx, salt.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}
