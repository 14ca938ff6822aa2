package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bloh/internal/media"
	"bloh/internal/middleware"
	"bloh/internal/models"
	"bloh/internal/observability"
	"bloh/internal/policy"
	"bloh/internal/repository"
	"bloh/internal/storage"
	"bloh/internal/validation"
)

// Feed page sizes.
const (
	PublicPageSize    = 4
	PublicMaxPageSize = 20
	AdminPageSize     = 8
	AdminMaxPageSize  = 50
)

// PublishNotifier is told about every transition of a post into published.
type PublishNotifier interface {
	PostPublished(ctx context.Context, post *models.Post)
}

// ViewDeduper admits the first view of a (post, fingerprint) pair within ttl.
type ViewDeduper interface {
	FirstView(ctx context.Context, postID uint, fingerprint string, ttl time.Duration) (bool, error)
}

type PostService struct {
	posts    repository.PostRepository
	tags     repository.TagRepository
	images   imageStore
	notifier PublishNotifier
	views    ViewDeduper
	viewTTL  time.Duration
}

type CreatePostInput struct {
	PostType    string
	Status      string
	Title       string
	Excerpt     string
	Content     string
	Calories    *int
	CookingTime *int
	TagIDs      []uint
	Cover       *media.Upload
}

// UpdatePostInput carries a partial update; nil fields are left unchanged.
type UpdatePostInput struct {
	PostType    *string
	Status      *string
	Title       *string
	Excerpt     *string
	Content     *string
	Calories    *int
	CookingTime *int
	TagIDs      *[]uint
	Cover       *media.Upload
}

// FeedInput holds the raw feed parameters after type conversion.
type FeedInput struct {
	PostType    string
	MaxTime     *int
	MaxCalories *int
	Tags        string
	Ordering    string
	AuthorID    uint
	Page        int
	PageSize    int
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}

// HasNext reports whether another page follows.
func (p Page[T]) HasNext() bool {
	return int64(p.Page*p.PageSize) < p.Total
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Likes   int  `json:"likes"`
	IsLiked bool `json:"is_liked"`
}

func NewPostService(
	posts repository.PostRepository,
	tags repository.TagRepository,
	store storage.Storage,
	validator media.Validator,
	notifier PublishNotifier,
	views ViewDeduper,
	viewTTL time.Duration,
) *PostService {
	return &PostService{
		posts:    posts,
		tags:     tags,
		images:   imageStore{store: store, validator: validator},
		notifier: notifier,
		views:    views,
		viewTTL:  viewTTL,
	}
}

// MediaURL resolves a stored image key into a public URL.
func (s *PostService) MediaURL(key string) string {
	return s.images.URL(key)
}

func (s *PostService) CreatePost(ctx context.Context, id policy.Identity, in CreatePostInput) (*models.Post, error) {
	if err := policy.Authenticated.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}

	postType := models.PostType(strings.TrimSpace(in.PostType))
	if postType == "" {
		postType = models.PostTypeRecipe
	}
	if !postType.Valid() {
		return nil, models.NewFieldValidationError("post_type", "Invalid post_type")
	}
	status := models.PostStatus(strings.TrimSpace(in.Status))
	if status == "" {
		status = models.PostStatusDraft
	}
	if !status.Valid() {
		return nil, models.NewFieldValidationError("status", "Invalid status")
	}
	if err := validatePostFields(in.Title, in.Excerpt, in.Content, in.Calories, in.CookingTime); err != nil {
		return nil, err
	}
	tags, err := s.resolveTags(ctx, in.TagIDs)
	if err != nil {
		return nil, err
	}
	var cover *media.Image
	if in.Cover != nil {
		if cover, err = s.images.validator.Validate("cover_image", *in.Cover); err != nil {
			return nil, err
		}
	}

	post := &models.Post{
		PostType:    postType,
		Status:      status,
		Title:       strings.TrimSpace(in.Title),
		Excerpt:     in.Excerpt,
		Content:     in.Content,
		AuthorID:    id.UserID,
		Calories:    in.Calories,
		CookingTime: in.CookingTime,
		Tags:        tags,
	}
	if cover != nil {
		if post.CoverImage, err = s.images.put(ctx, CoverPrefix, cover); err != nil {
			return nil, err
		}
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.images.removeAll(ctx, post.CoverImage)
		return nil, err
	}

	created, err := s.posts.GetByID(ctx, post.ID, id.UserID)
	if err != nil {
		return nil, err
	}
	if created.IsPublished() {
		s.announce(ctx, created)
	}
	return created, nil
}

// GetPost returns a post visible to id. Unpublished posts are reported missing to
// everyone except their author and admins.
func (s *PostService) GetPost(ctx context.Context, id policy.Identity, postID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID, id.UserID)
	if err != nil {
		return nil, err
	}
	if !canSee(id, post) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, id policy.Identity, postID uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID, id.UserID)
	if err != nil {
		return nil, err
	}
	if !canSee(id, post) {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if err := policy.OwnerOrAdmin.Check(id, policy.Write, post.AuthorID); err != nil {
		return nil, err
	}
	wasPublished := post.IsPublished()

	if in.PostType != nil {
		pt := models.PostType(*in.PostType)
		if !pt.Valid() {
			return nil, models.NewFieldValidationError("post_type", "Invalid post_type")
		}
		post.PostType = pt
	}
	if in.Status != nil {
		st := models.PostStatus(*in.Status)
		if !st.Valid() {
			return nil, models.NewFieldValidationError("status", "Invalid status")
		}
		post.Status = st
	}
	if in.Title != nil {
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Excerpt != nil {
		post.Excerpt = *in.Excerpt
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if in.Calories != nil {
		post.Calories = in.Calories
	}
	if in.CookingTime != nil {
		post.CookingTime = in.CookingTime
	}
	if err := validatePostFields(post.Title, post.Excerpt, post.Content, post.Calories, post.CookingTime); err != nil {
		return nil, err
	}
	if in.TagIDs != nil {
		if post.Tags, err = s.resolveTags(ctx, *in.TagIDs); err != nil {
			return nil, err
		}
	}

	var oldCover string
	if in.Cover != nil {
		cover, err := s.images.validator.Validate("cover_image", *in.Cover)
		if err != nil {
			return nil, err
		}
		key, err := s.images.put(ctx, CoverPrefix, cover)
		if err != nil {
			return nil, err
		}
		oldCover, post.CoverImage = post.CoverImage, key
	}

	if err := s.posts.Update(ctx, post, in.TagIDs != nil); err != nil {
		if in.Cover != nil {
			s.images.removeAll(ctx, post.CoverImage)
		}
		return nil, err
	}
	s.images.removeAll(ctx, oldCover)

	updated, err := s.posts.GetByID(ctx, postID, id.UserID)
	if err != nil {
		return nil, err
	}
	if !wasPublished && updated.IsPublished() {
		s.announce(ctx, updated)
	}
	return updated, nil
}

// DeletePost removes the post with everything it owns, then its stored images.
func (s *PostService) DeletePost(ctx context.Context, id policy.Identity, postID uint) error {
	post, err := s.posts.GetByID(ctx, postID, id.UserID)
	if err != nil {
		return err
	}
	if !canSee(id, post) {
		return models.NewNotFoundError("Post", postID)
	}
	if err := policy.OwnerOrAdmin.Check(id, policy.Write, post.AuthorID); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}

	keys := []string{post.CoverImage}
	for _, step := range post.Steps {
		keys = append(keys, step.Image)
	}
	s.images.removeAll(ctx, keys...)
	return nil
}

// Feed lists posts for id. Admins see every status.
func (s *PostService) Feed(ctx context.Context, id policy.Identity, in FeedInput) (*Page[models.Post], error) {
	return s.feed(ctx, id, in, id.Admin, PublicPageSize, PublicMaxPageSize)
}

// AdminFeed is the moderation listing with larger pages.
func (s *PostService) AdminFeed(ctx context.Context, id policy.Identity, in FeedInput) (*Page[models.Post], error) {
	if err := policy.AdminWrite.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}
	return s.feed(ctx, id, in, true, AdminPageSize, AdminMaxPageSize)
}

func (s *PostService) feed(ctx context.Context, id policy.Identity, in FeedInput, includeHidden bool, defSize, maxSize int) (*Page[models.Post], error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 {
		size = defSize
	}
	if size > maxSize {
		size = maxSize
	}

	items, total, err := s.posts.Feed(ctx, repository.FeedQuery{
		ViewerID:      id.UserID,
		IncludeHidden: includeHidden,
		PostType:      models.PostType(in.PostType),
		MaxTime:       in.MaxTime,
		MaxCalories:   in.MaxCalories,
		TagSlugs:      ParseTagSlugs(in.Tags),
		AuthorID:      in.AuthorID,
		Ordering:      in.Ordering,
		Limit:         size,
		Offset:        (page - 1) * size,
	})
	if err != nil {
		return nil, err
	}
	if total > 0 && len(items) == 0 {
		return nil, models.NewNotFoundError("Page", page)
	}
	return &Page[models.Post]{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// SetStatus is the admin moderation transition.
func (s *PostService) SetStatus(ctx context.Context, id policy.Identity, postID uint, status string) (*models.Post, error) {
	if err := policy.AdminWrite.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}
	st := models.PostStatus(status)
	if !st.Valid() {
		return nil, models.NewFieldValidationError("status", "Invalid status")
	}
	post, err := s.posts.GetByID(ctx, postID, id.UserID)
	if err != nil {
		return nil, err
	}
	wasPublished := post.IsPublished()
	if err := s.posts.UpdateStatus(ctx, postID, st); err != nil {
		return nil, err
	}
	post.Status = st
	if !wasPublished && post.IsPublished() {
		s.announce(ctx, post)
	}
	return post, nil
}

func (s *PostService) ToggleLike(ctx context.Context, id policy.Identity, postID uint) (*LikeResult, error) {
	if err := policy.Authenticated.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}
	if _, err := s.GetPost(ctx, id, postID); err != nil {
		return nil, err
	}
	liked, likes, err := s.posts.ToggleLike(ctx, id.UserID, postID)
	if err != nil {
		return nil, err
	}
	state := "unliked"
	if liked {
		state = "liked"
	}
	observability.LikeToggles.WithLabelValues(state).Inc()
	return &LikeResult{Likes: likes, IsLiked: liked}, nil
}

// RecordView counts a view once per fingerprint within the dedup window. When the
// dedup store is unreachable nothing is counted and the current total is returned.
func (s *PostService) RecordView(ctx context.Context, id policy.Identity, postID uint, fingerprint string) (int, error) {
	if _, err := s.GetPost(ctx, id, postID); err != nil {
		return 0, err
	}

	first, err := s.views.FirstView(ctx, postID, fingerprint, s.viewTTL)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "view dedup unavailable, view not counted",
			slog.Uint64("post_id", uint64(postID)), slog.String("error", err.Error()))
		observability.ViewEvents.WithLabelValues("skipped").Inc()
		return s.posts.ViewCount(ctx, postID)
	}
	if !first {
		observability.ViewEvents.WithLabelValues("deduplicated").Inc()
		return s.posts.ViewCount(ctx, postID)
	}
	observability.ViewEvents.WithLabelValues("counted").Inc()
	return s.posts.IncrementViews(ctx, postID)
}

func (s *PostService) announce(ctx context.Context, post *models.Post) {
	if s.notifier == nil {
		return
	}
	s.notifier.PostPublished(ctx, post)
}

func (s *PostService) resolveTags(ctx context.Context, ids []uint) ([]models.Tag, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	tags, err := s.tags.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(ids) {
		found := make(map[uint]bool, len(tags))
		for _, t := range tags {
			found[t.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, models.NewNotFoundError("Tag", id)
			}
		}
	}
	return tags, nil
}

func canSee(id policy.Identity, post *models.Post) bool {
	return post.IsPublished() || id.Admin || id.Owns(post.AuthorID)
}

func validatePostFields(title, excerpt, content string, calories, cookingTime *int) error {
	checks := []struct {
		field string
		err   error
	}{
		{"title", validation.ValidateText("title", title, validation.MaxTitleLength)},
		{"excerpt", validation.ValidateMaxLength("excerpt", excerpt, validation.MaxContentLength)},
		{"content", validation.ValidateMaxLength("content", content, validation.MaxContentLength)},
		{"calories", validation.ValidateNonNegative("calories", calories)},
		{"cooking_time", validation.ValidateNonNegative("cooking_time", cookingTime)},
	}
	for _, c := range checks {
		if c.err != nil {
			return models.NewFieldValidationError(c.field, c.err.Error())
		}
	}
	return nil
}

// ParseTagSlugs splits a comma-separated tag list, dropping blanks and duplicates.
func ParseTagSlugs(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		slug := strings.ToLower(strings.TrimSpace(part))
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	return out
}

func uniqueIDs(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Fingerprint identifies a viewer for view dedup: the user id when known,
// otherwise a short hash of address and user agent.
func Fingerprint(id policy.Identity, ip, userAgent string) string {
	if id.Authenticated() {
		return fmt.Sprintf("u:%d", id.UserID)
	}
	return anonymousFingerprint(ip, userAgent)
}
