package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bloh/internal/cache"
	"bloh/internal/featureflags"
	"bloh/internal/media"
	"bloh/internal/models"
	"bloh/internal/policy"
	"bloh/internal/repository"
	"bloh/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// publishRecorder captures publication notices.
type publishRecorder struct {
	mu    sync.Mutex
	posts []uint
}

func (r *publishRecorder) PostPublished(_ context.Context, post *models.Post) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, post.ID)
}

func (r *publishRecorder) published() []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint(nil), r.posts...)
}

type fixture struct {
	db          *gorm.DB
	mr          *miniredis.Miniredis
	store       *testutil.MemoryStorage
	published   *publishRecorder
	posts       *PostService
	recipes     *RecipeService
	comments    *CommentService
	tags        *TagService
	ingredients *IngredientService
	users       *UserService
	auth        *AuthService
	reports     *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	mr, rdb := testutil.NewTestRedis(t)
	store := testutil.NewMemoryStorage()
	validator := media.Validator{MaxBytes: 1 << 20}
	recorder := &publishRecorder{}

	postRepo := repository.NewPostRepository(db)
	tagRepo := repository.NewTagRepository(db)
	ingredientRepo := repository.NewIngredientRepository(db)
	userRepo := repository.NewUserRepository(db)

	return &fixture{
		db:          db,
		mr:          mr,
		store:       store,
		published:   recorder,
		posts:       NewPostService(postRepo, tagRepo, store, validator, recorder, cache.NewViewDeduper(rdb), time.Hour),
		recipes:     NewRecipeService(postRepo, repository.NewRecipeRepository(db), ingredientRepo, store, validator),
		comments:    NewCommentService(repository.NewCommentRepository(db), postRepo),
		tags:        NewTagService(tagRepo),
		ingredients: NewIngredientService(ingredientRepo),
		users:       NewUserService(userRepo, store, validator),
		auth:        NewAuthService(userRepo, "test-secret-test-secret-test-secret"),
		reports:     NewReportService(postRepo, featureflags.NewManager("")),
	}
}

func (f *fixture) user(t *testing.T, name string) policy.Identity {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, f.db.Create(u).Error)
	return policy.Identity{UserID: u.ID}
}

func (f *fixture) admin(t *testing.T, name string) policy.Identity {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "x", Role: models.RoleAdmin}
	require.NoError(t, f.db.Create(u).Error)
	return policy.Identity{UserID: u.ID, Admin: true}
}

func (f *fixture) post(t *testing.T, author policy.Identity, status models.PostStatus) *models.Post {
	t.Helper()
	p, err := f.posts.CreatePost(context.Background(), author, CreatePostInput{
		Title:   "Post",
		Content: "body",
		Status:  string(status),
	})
	require.NoError(t, err)
	return p
}

func pngUpload(t *testing.T, w, h int) *media.Upload {
	t.Helper()
	return &media.Upload{Filename: "img.png", ContentType: "image/png", Data: testutil.TinyPNG(t, w, h)}
}

func ptr[T any](v T) *T { return &v }

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func assertField(t *testing.T, err error, field string) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, field)
}
