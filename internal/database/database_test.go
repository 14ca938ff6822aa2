package database

import (
	"fmt"
	"testing"

	"bloh/internal/config"
	"bloh/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesRelations(t *testing.T) {
	var hasLike, hasSubscription bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.PostLike:
			hasLike = true
		case *models.Subscription:
			hasSubscription = true
		}
	}
	assert.True(t, hasLike, "PersistentModels should include PostLike")
	assert.True(t, hasSubscription, "PersistentModels should include Subscription")
}

func TestDialector(t *testing.T) {
	assert.Equal(t, "sqlite", Dialector(&config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"}).Name())
	assert.Equal(t, "postgres", Dialector(&config.Config{DBDriver: "postgres"}).Name())
	assert.Equal(t, "postgres", Dialector(&config.Config{}).Name())
}

func TestConnect_SQLiteMigratesSchema(t *testing.T) {
	cfg := &config.Config{
		Env:        "test",
		DBDriver:   "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
	}
	db, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	for _, table := range []string{"users", "subscriptions", "tags", "ingredients", "posts", "post_likes", "post_tags", "post_ingredients", "recipe_steps", "comments"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.True(t, db.Migrator().HasColumn(&models.RecipeStep{}, "step_order"))
	assert.False(t, db.Migrator().HasColumn(&models.Post{}, "is_liked"))
	assert.Nil(t, GetReadDB())
}
