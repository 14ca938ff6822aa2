package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bloh/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		Username: name,
		Email:    name + "@example.com",
		Password: "x",
		Role:     models.RoleUser,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createTag(t *testing.T, db *gorm.DB, name string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name}
	require.NoError(t, db.Create(&tag).Error)
	return tag
}

type postOpt func(*models.Post)

func withStatus(s models.PostStatus) postOpt { return func(p *models.Post) { p.Status = s } }
func withTags(tags ...models.Tag) postOpt   { return func(p *models.Post) { p.Tags = tags } }
func withType(pt models.PostType) postOpt   { return func(p *models.Post) { p.PostType = pt } }
func withCreated(at time.Time) postOpt      { return func(p *models.Post) { p.CreatedAt = at } }
func withCounts(likes, views int) postOpt {
	return func(p *models.Post) { p.LikesCount = likes; p.ViewsCount = views }
}
func withRecipeFacts(cal, minutes int) postOpt {
	return func(p *models.Post) { p.Calories = &cal; p.CookingTime = &minutes }
}

var postSeq int

func createPost(t *testing.T, repo PostRepository, author *models.User, opts ...postOpt) *models.Post {
	t.Helper()
	postSeq++
	p := &models.Post{
		PostType: models.PostTypeRecipe,
		Status:   models.PostStatusPublished,
		Title:    fmt.Sprintf("post %d", postSeq),
		AuthorID: author.ID,
	}
	for _, o := range opts {
		o(p)
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func postIDs(posts []models.Post) []uint {
	out := make([]uint, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func mockStepRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "post_id", "step_order", "description", "image"})
}
