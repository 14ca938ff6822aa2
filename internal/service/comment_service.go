package service

import (
	"context"
	"strings"

	"bloh/internal/models"
	"bloh/internal/policy"
	"bloh/internal/repository"
	"bloh/internal/validation"
)

// Comment page sizes.
const (
	CommentPageSize    = 20
	CommentMaxPageSize = 100
)

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
}

type CreateCommentInput struct {
	PostID          uint
	Content         string
	ParentCommentID *uint
}

func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository) *CommentService {
	return &CommentService{comments: comments, posts: posts}
}

// visiblePost loads the post and hides unpublished posts from outsiders.
func (s *CommentService) visiblePost(ctx context.Context, id policy.Identity, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID, id.UserID)
	if err != nil {
		return nil, err
	}
	if !canSee(id, post) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

// ListComments returns a post's comments oldest first.
func (s *CommentService) ListComments(ctx context.Context, id policy.Identity, postID uint, page, pageSize int) (*Page[models.Comment], error) {
	if _, err := s.visiblePost(ctx, id, postID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = CommentPageSize
	}
	if pageSize > CommentMaxPageSize {
		pageSize = CommentMaxPageSize
	}
	items, total, err := s.comments.ListByPost(ctx, postID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &Page[models.Comment]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *CommentService) CreateComment(ctx context.Context, id policy.Identity, in CreateCommentInput) (*models.Comment, error) {
	if err := policy.Authenticated.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(ctx, id, in.PostID); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(in.Content)
	if err := validation.ValidateText("content", content, validation.MaxCommentLength); err != nil {
		return nil, models.NewFieldValidationError("content", err.Error())
	}
	if in.ParentCommentID != nil {
		parent, err := s.comments.GetByID(ctx, *in.ParentCommentID)
		if err != nil || parent.PostID != in.PostID {
			if err != nil && models.ErrorCode(err) != models.CodeNotFound {
				return nil, err
			}
			return nil, models.NewFieldValidationError("parent_comment", "Parent comment must belong to the same post")
		}
	}

	comment := &models.Comment{
		PostID:          in.PostID,
		AuthorID:        id.UserID,
		Content:         content,
		ParentCommentID: in.ParentCommentID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.comments.GetByID(ctx, comment.ID)
}

// UpdateComment replaces the content of a comment. Only the comment author or an
// admin may edit.
func (s *CommentService) UpdateComment(ctx context.Context, id policy.Identity, commentID uint, content string) (*models.Comment, error) {
	if err := policy.Authenticated.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := policy.OwnerOrAdmin.Check(id, policy.Write, comment.AuthorID); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if err := validation.ValidateText("content", content, validation.MaxCommentLength); err != nil {
		return nil, models.NewFieldValidationError("content", err.Error())
	}
	comment.Content = content
	if err := s.comments.UpdateContent(ctx, comment); err != nil {
		return nil, err
	}
	return s.comments.GetByID(ctx, commentID)
}

// DeleteComment removes the comment and its replies. Only the comment author or
// an admin may delete.
func (s *CommentService) DeleteComment(ctx context.Context, id policy.Identity, commentID uint) error {
	if err := policy.Authenticated.Check(id, policy.Write, 0); err != nil {
		return err
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if err := policy.OwnerOrAdmin.Check(id, policy.Write, comment.AuthorID); err != nil {
		return err
	}
	return s.comments.Delete(ctx, comment)
}
