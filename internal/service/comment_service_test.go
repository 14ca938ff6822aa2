package service

import (
	"context"
	"strings"
	"testing"

	"bloh/internal/models"
	"bloh/internal/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	reader := f.user(t, "reader")
	p := f.post(t, author, models.PostStatusPublished)
	otherPost := f.post(t, author, models.PostStatusPublished)
	draft := f.post(t, author, models.PostStatusDraft)

	_, err := f.comments.CreateComment(ctx, policy.Anonymous, CreateCommentInput{PostID: p.ID, Content: "hi"})
	assertCode(t, err, models.CodeUnauthorized)

	_, err = f.comments.CreateComment(ctx, reader, CreateCommentInput{PostID: draft.ID, Content: "hi"})
	assertCode(t, err, models.CodeNotFound)

	_, err = f.comments.CreateComment(ctx, reader, CreateCommentInput{PostID: p.ID, Content: "  "})
	assertField(t, err, "content")
	_, err = f.comments.CreateComment(ctx, reader, CreateCommentInput{PostID: p.ID, Content: strings.Repeat("x", 5001)})
	assertField(t, err, "content")

	root, err := f.comments.CreateComment(ctx, reader, CreateCommentInput{PostID: p.ID, Content: "tasty"})
	require.NoError(t, err)
	assert.Equal(t, "reader", root.Author.Username)

	reply, err := f.comments.CreateComment(ctx, author, CreateCommentInput{PostID: p.ID, Content: "thanks", ParentCommentID: &root.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentCommentID)

	_, err = f.comments.CreateComment(ctx, author, CreateCommentInput{PostID: otherPost.ID, Content: "x", ParentCommentID: &root.ID})
	assertField(t, err, "parent_comment")
	_, err = f.comments.CreateComment(ctx, author, CreateCommentInput{PostID: p.ID, Content: "x", ParentCommentID: ptr(uint(9999))})
	assertField(t, err, "parent_comment")

	got, err := f.posts.GetPost(ctx, author, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentsCount)
}

func TestCommentService_ListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	reader := f.user(t, "reader")
	stranger := f.user(t, "stranger")
	admin := f.admin(t, "admin")
	p := f.post(t, author, models.PostStatusPublished)

	first, err := f.comments.CreateComment(ctx, reader, CreateCommentInput{PostID: p.ID, Content: "first"})
	require.NoError(t, err)
	_, err = f.comments.CreateComment(ctx, author, CreateCommentInput{PostID: p.ID, Content: "reply", ParentCommentID: &first.ID})
	require.NoError(t, err)
	second, err := f.comments.CreateComment(ctx, reader, CreateCommentInput{PostID: p.ID, Content: "second"})
	require.NoError(t, err)

	page, err := f.comments.ListComments(ctx, policy.Anonymous, p.ID, 1, 0)
	require.NoError(t, err)
	require.Equal(t, int64(3), page.Total)
	assert.Equal(t, "first", page.Items[0].Content)

	assertCode(t, f.comments.DeleteComment(ctx, stranger, first.ID), models.CodeForbidden)
	assertCode(t, f.comments.DeleteComment(ctx, policy.Anonymous, first.ID), models.CodeUnauthorized)

	require.NoError(t, f.comments.DeleteComment(ctx, reader, first.ID))
	page, err = f.comments.ListComments(ctx, policy.Anonymous, p.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total, "replies go with their parent")

	require.NoError(t, f.comments.DeleteComment(ctx, admin, second.ID))
	got, err := f.posts.GetPost(ctx, author, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CommentsCount)

	assertCode(t, f.comments.DeleteComment(ctx, admin, second.ID), models.CodeNotFound)
}

func TestCommentService_UpdateComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "author")
	reader := f.user(t, "reader")
	stranger := f.user(t, "stranger")
	admin := f.admin(t, "admin")
	p := f.post(t, author, models.PostStatusPublished)

	c, err := f.comments.CreateComment(ctx, reader, CreateCommentInput{PostID: p.ID, Content: "first"})
	require.NoError(t, err)

	_, err = f.comments.UpdateComment(ctx, policy.Anonymous, c.ID, "x")
	assertCode(t, err, models.CodeUnauthorized)
	_, err = f.comments.UpdateComment(ctx, stranger, c.ID, "x")
	assertCode(t, err, models.CodeForbidden)
	_, err = f.comments.UpdateComment(ctx, reader, c.ID, "   ")
	assertField(t, err, "content")
	_, err = f.comments.UpdateComment(ctx, reader, c.ID, strings.Repeat("x", 5001))
	assertField(t, err, "content")
	_, err = f.comments.UpdateComment(ctx, reader, 9999, "x")
	assertCode(t, err, models.CodeNotFound)

	updated, err := f.comments.UpdateComment(ctx, reader, c.ID, "  second thoughts ")
	require.NoError(t, err)
	assert.Equal(t, "second thoughts", updated.Content)
	assert.Equal(t, "reader", updated.Author.Username)

	updated, err = f.comments.UpdateComment(ctx, admin, c.ID, "moderated")
	require.NoError(t, err)
	assert.Equal(t, "moderated", updated.Content)

	got, err := f.posts.GetPost(ctx, author, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentsCount)
}
