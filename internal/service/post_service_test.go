package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"bloh/internal/media"
	"bloh/internal/models"
	"bloh/internal/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_CreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")

	t.Run("anonymous", func(t *testing.T) {
		_, err := f.posts.CreatePost(ctx, policy.Anonymous, CreatePostInput{Title: "x"})
		assertCode(t, err, models.CodeUnauthorized)
	})

	t.Run("defaults to a draft recipe and stays quiet", func(t *testing.T) {
		p, err := f.posts.CreatePost(ctx, author, CreatePostInput{Title: "  Soup  ", Content: "hot"})
		require.NoError(t, err)
		assert.Equal(t, models.PostStatusDraft, p.Status)
		assert.Equal(t, models.PostTypeRecipe, p.PostType)
		assert.Equal(t, "Soup", p.Title)
		assert.Equal(t, author.UserID, p.AuthorID)
		assert.Empty(t, f.published.published())
	})

	t.Run("published on create announces", func(t *testing.T) {
		p, err := f.posts.CreatePost(ctx, author, CreatePostInput{Title: "Live", Status: "published"})
		require.NoError(t, err)
		assert.Equal(t, []uint{p.ID}, f.published.published())
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			in    CreatePostInput
			field string
		}{
			{"blank title", CreatePostInput{Title: "   "}, "title"},
			{"bad type", CreatePostInput{Title: "x", PostType: "video"}, "post_type"},
			{"bad status", CreatePostInput{Title: "x", Status: "deleted"}, "status"},
			{"negative calories", CreatePostInput{Title: "x", Calories: ptr(-1)}, "calories"},
			{"negative cooking time", CreatePostInput{Title: "x", CookingTime: ptr(-5)}, "cooking_time"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.posts.CreatePost(ctx, author, tt.in)
				assertField(t, err, tt.field)
			})
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		_, err := f.posts.CreatePost(ctx, author, CreatePostInput{Title: "x", TagIDs: []uint{999}})
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("tags and cover", func(t *testing.T) {
		tag := models.Tag{Name: "Dinner"}
		require.NoError(t, f.db.Create(&tag).Error)

		p, err := f.posts.CreatePost(ctx, author, CreatePostInput{
			Title:  "Covered",
			TagIDs: []uint{tag.ID, tag.ID},
			Cover:  pngUpload(t, 40, 30),
		})
		require.NoError(t, err)
		require.Len(t, p.Tags, 1)
		assert.Equal(t, "dinner", p.Tags[0].Slug)
		require.NotEmpty(t, p.CoverImage)
		assert.True(t, f.store.Has(p.CoverImage))
		assert.Equal(t, "/media/"+p.CoverImage, f.posts.MediaURL(p.CoverImage))
	})

	t.Run("invalid cover stores nothing", func(t *testing.T) {
		before := f.store.Len()
		_, err := f.posts.CreatePost(ctx, author, CreatePostInput{
			Title: "x",
			Cover: &media.Upload{Filename: "a.txt", Data: []byte("not an image")},
		})
		assertField(t, err, "cover_image")
		assert.Equal(t, before, f.store.Len())
	})
}

func TestPostService_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	other := f.user(t, "other")
	admin := f.admin(t, "admin")
	draft := f.post(t, author, models.PostStatusDraft)

	tests := []struct {
		name    string
		viewer  policy.Identity
		visible bool
	}{
		{"author", author, true},
		{"admin", admin, true},
		{"other user", other, false},
		{"anonymous", policy.Anonymous, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.posts.GetPost(ctx, tt.viewer, draft.ID)
			if tt.visible {
				assert.NoError(t, err)
			} else {
				assertCode(t, err, models.CodeNotFound)
			}
		})
	}
}

func TestPostService_UpdatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	other := f.user(t, "other")
	p, err := f.posts.CreatePost(ctx, author, CreatePostInput{Title: "Draft", Cover: pngUpload(t, 10, 10)})
	require.NoError(t, err)
	oldCover := p.CoverImage

	// Drafts are invisible to everyone but the author.
	_, err = f.posts.UpdatePost(ctx, other, p.ID, UpdatePostInput{Title: ptr("stolen")})
	assertCode(t, err, models.CodeNotFound)

	updated, err := f.posts.UpdatePost(ctx, author, p.ID, UpdatePostInput{
		Status: ptr("published"),
		Title:  ptr("Final"),
		Cover:  pngUpload(t, 12, 12),
	})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, []uint{p.ID}, f.published.published())
	assert.NotEqual(t, oldCover, updated.CoverImage)
	assert.False(t, f.store.Has(oldCover))
	assert.True(t, f.store.Has(updated.CoverImage))

	// Already published: no second notice.
	_, err = f.posts.UpdatePost(ctx, author, p.ID, UpdatePostInput{Excerpt: ptr("short")})
	require.NoError(t, err)
	assert.Len(t, f.published.published(), 1)

	_, err = f.posts.UpdatePost(ctx, other, p.ID, UpdatePostInput{Title: ptr("stolen")})
	assertCode(t, err, models.CodeForbidden)
	_, err = f.posts.UpdatePost(ctx, policy.Anonymous, p.ID, UpdatePostInput{Title: ptr("stolen")})
	assertCode(t, err, models.CodeUnauthorized)

	_, err = f.posts.UpdatePost(ctx, author, p.ID, UpdatePostInput{TagIDs: &[]uint{42}})
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_DeletePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	p, err := f.posts.CreatePost(ctx, author, CreatePostInput{Title: "Bye", Cover: pngUpload(t, 10, 10)})
	require.NoError(t, err)

	require.NoError(t, f.posts.DeletePost(ctx, author, p.ID))
	assert.False(t, f.store.Has(p.CoverImage))

	_, err = f.posts.GetPost(ctx, author, p.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_Feed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	admin := f.admin(t, "admin")
	for range 5 {
		f.post(t, author, models.PostStatusPublished)
	}
	f.post(t, author, models.PostStatusDraft)

	page, err := f.posts.Feed(ctx, policy.Anonymous, FeedInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Items, PublicPageSize)
	assert.True(t, page.HasNext())

	page, err = f.posts.Feed(ctx, policy.Anonymous, FeedInput{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasNext())

	_, err = f.posts.Feed(ctx, policy.Anonymous, FeedInput{Page: 3})
	assertCode(t, err, models.CodeNotFound)

	page, err = f.posts.Feed(ctx, policy.Anonymous, FeedInput{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, PublicMaxPageSize, page.PageSize)

	page, err = f.posts.AdminFeed(ctx, admin, FeedInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), page.Total)
	assert.Equal(t, AdminPageSize, page.PageSize)

	_, err = f.posts.AdminFeed(ctx, author, FeedInput{})
	assertCode(t, err, models.CodeForbidden)
}

func TestPostService_SetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	admin := f.admin(t, "admin")
	p := f.post(t, author, models.PostStatusDraft)

	_, err := f.posts.SetStatus(ctx, author, p.ID, "published")
	assertCode(t, err, models.CodeForbidden)
	_, err = f.posts.SetStatus(ctx, admin, p.ID, "gone")
	assertField(t, err, "status")

	got, err := f.posts.SetStatus(ctx, admin, p.ID, "published")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, got.Status)
	assert.Equal(t, []uint{p.ID}, f.published.published())

	_, err = f.posts.SetStatus(ctx, admin, p.ID, "archived")
	require.NoError(t, err)
	assert.Len(t, f.published.published(), 1)
}

func TestPostService_ToggleLike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	fan := f.user(t, "fan")
	p := f.post(t, author, models.PostStatusPublished)
	draft := f.post(t, author, models.PostStatusDraft)

	_, err := f.posts.ToggleLike(ctx, policy.Anonymous, p.ID)
	assertCode(t, err, models.CodeUnauthorized)

	res, err := f.posts.ToggleLike(ctx, fan, p.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Likes: 1, IsLiked: true}, *res)

	res, err = f.posts.ToggleLike(ctx, fan, p.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Likes: 0, IsLiked: false}, *res)

	_, err = f.posts.ToggleLike(ctx, fan, draft.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_RecordView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	p := f.post(t, author, models.PostStatusPublished)
	anon := Fingerprint(policy.Anonymous, "10.0.0.1", "curl/8")

	views, err := f.posts.RecordView(ctx, policy.Anonymous, p.ID, anon)
	require.NoError(t, err)
	assert.Equal(t, 1, views)

	views, err = f.posts.RecordView(ctx, policy.Anonymous, p.ID, anon)
	require.NoError(t, err)
	assert.Equal(t, 1, views, "same fingerprint within the window counts once")

	views, err = f.posts.RecordView(ctx, author, p.ID, Fingerprint(author, "10.0.0.1", "curl/8"))
	require.NoError(t, err)
	assert.Equal(t, 2, views)

	f.mr.Close()
	views, err = f.posts.RecordView(ctx, policy.Anonymous, p.ID, Fingerprint(policy.Anonymous, "10.0.0.2", "x"))
	require.NoError(t, err)
	assert.Equal(t, 2, views, "no increment while dedup storage is down")

	_, err = f.posts.RecordView(ctx, policy.Anonymous, 9999, anon)
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_RecordView_ConcurrentSameFingerprint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, f.user(t, "author"), models.PostStatusPublished)
	anon := Fingerprint(policy.Anonymous, "10.0.0.9", "firefox")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.posts.RecordView(ctx, policy.Anonymous, p.ID, anon)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var stored models.Post
	require.NoError(t, f.db.First(&stored, p.ID).Error)
	assert.Equal(t, 1, stored.ViewsCount)
}

func TestPostService_ToggleLike_ConcurrentReaders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.post(t, f.user(t, "author"), models.PostStatusPublished)

	readers := make([]policy.Identity, 10)
	for i := range readers {
		readers[i] = f.user(t, fmt.Sprintf("reader%d", i))
	}

	var wg sync.WaitGroup
	for _, r := range readers {
		wg.Add(1)
		go func(id policy.Identity) {
			defer wg.Done()
			res, err := f.posts.ToggleLike(ctx, id, p.ID)
			if assert.NoError(t, err) {
				assert.True(t, res.IsLiked)
			}
		}(r)
	}
	wg.Wait()

	var likedBy int64
	require.NoError(t, f.db.Model(&models.PostLike{}).Where("post_id = ?", p.ID).Count(&likedBy).Error)
	var stored models.Post
	require.NoError(t, f.db.First(&stored, p.ID).Error)
	assert.Equal(t, int64(len(readers)), likedBy)
	assert.Equal(t, int(likedBy), stored.LikesCount)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "u:7", Fingerprint(policy.Identity{UserID: 7}, "1.2.3.4", "ua"))

	a := Fingerprint(policy.Anonymous, "1.2.3.4", "ua")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Fingerprint(policy.Anonymous, "1.2.3.4", "ua"))
	assert.NotEqual(t, a, Fingerprint(policy.Anonymous, "1.2.3.4", "other"))
}

func TestParseTagSlugs(t *testing.T) {
	assert.Equal(t, []string{"soup", "vegan"}, ParseTagSlugs(" Soup, vegan,,soup "))
	assert.Empty(t, ParseTagSlugs(""))
}
