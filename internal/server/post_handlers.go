package server

import (
	"strconv"
	"strings"

	"bloh/internal/media"
	"bloh/internal/models"
	"bloh/internal/repository"
	"bloh/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postRequest is the body of post create and update. Absent fields stay nil.
type postRequest struct {
	PostType    *string `json:"post_type"`
	Status      *string `json:"status"`
	Title       *string `json:"title"`
	Excerpt     *string `json:"excerpt"`
	Content     *string `json:"content"`
	Calories    *int    `json:"calories"`
	CookingTime *int    `json:"cooking_time"`
	TagIDs      *[]uint `json:"tag_ids"`
}

// decodePostRequest accepts JSON or a multipart form carrying cover_image.
func (s *Server) decodePostRequest(c *fiber.Ctx) (*postRequest, *media.Upload, error) {
	var req postRequest
	if !isMultipart(c) {
		if len(c.Body()) == 0 {
			return &req, nil, nil
		}
		if err := c.BodyParser(&req); err != nil {
			return nil, nil, models.NewValidationError("Invalid request body")
		}
		return &req, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, models.NewValidationError("Invalid multipart body")
	}
	text := func(name string) *string {
		if v, ok := form.Value[name]; ok && len(v) > 0 {
			return &v[0]
		}
		return nil
	}
	number := func(name string) (*int, error) {
		v := text(name)
		if v == nil || strings.TrimSpace(*v) == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(*v))
		if err != nil {
			return nil, models.NewFieldValidationError(name, "A valid integer is required")
		}
		return &n, nil
	}

	req.PostType = text("post_type")
	req.Status = text("status")
	req.Title = text("title")
	req.Excerpt = text("excerpt")
	req.Content = text("content")
	if req.Calories, err = number("calories"); err != nil {
		return nil, nil, err
	}
	if req.CookingTime, err = number("cooking_time"); err != nil {
		return nil, nil, err
	}
	if raw, ok := form.Value["tag_ids"]; ok {
		ids, err := parseIDList(strings.Join(raw, ","))
		if err != nil {
			return nil, nil, models.NewFieldValidationError("tag_ids", err.Error())
		}
		req.TagIDs = &ids
	}

	cover, err := s.formUpload(c, "cover_image")
	if err != nil {
		return nil, nil, err
	}
	return &req, cover, nil
}

// parseIDList parses a comma separated list of positive ids, ignoring blanks.
func parseIDList(raw string) ([]uint, error) {
	ids := []uint{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil || n == 0 {
			return nil, models.NewValidationError("Invalid id " + strconv.Quote(part))
		}
		ids = append(ids, uint(n))
	}
	return ids, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// feedInput converts the feed query string. It writes a 400 and returns
// errResponseWritten on malformed parameters.
func feedInput(c *fiber.Ctx) (service.FeedInput, error) {
	var in service.FeedInput
	var err error

	in.PostType = strings.TrimSpace(c.Query("post_type"))
	if in.PostType != "" && !models.PostType(in.PostType).Valid() {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError("post_type", "Invalid post_type"))
		return in, errResponseWritten
	}
	in.Ordering = strings.TrimSpace(c.Query("ordering"))
	if in.Ordering != "" && !repository.ValidOrdering(in.Ordering) {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError("ordering", "Invalid ordering"))
		return in, errResponseWritten
	}
	if in.MaxTime, err = queryInt(c, "max_time"); err != nil {
		return in, err
	}
	if in.MaxCalories, err = queryInt(c, "max_calories"); err != nil {
		return in, err
	}
	author, err := queryInt(c, "author")
	if err != nil {
		return in, err
	}
	if author != nil && *author > 0 {
		in.AuthorID = uint(*author)
	}
	in.Tags = c.Query("tags")
	if in.Page, in.PageSize, err = queryPage(c); err != nil {
		return in, err
	}
	return in, nil
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	in, err := feedInput(c)
	if err != nil {
		return nil
	}
	page, err := s.postService.Feed(c.UserContext(), identity(c), in)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(presentPage(c, page, s.presentPost))
}

// GetAdminPosts handles GET /api/admin/posts
func (s *Server) GetAdminPosts(c *fiber.Ctx) error {
	in, err := feedInput(c)
	if err != nil {
		return nil
	}
	page, err := s.postService.AdminFeed(c.UserContext(), identity(c), in)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(presentPage(c, page, s.presentPost))
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), identity(c), postID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(s.presentPost(post))
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	req, cover, err := s.decodePostRequest(c)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), identity(c), service.CreatePostInput{
		PostType:    deref(req.PostType),
		Status:      deref(req.Status),
		Title:       deref(req.Title),
		Excerpt:     deref(req.Excerpt),
		Content:     deref(req.Content),
		Calories:    req.Calories,
		CookingTime: req.CookingTime,
		TagIDs:      deref(req.TagIDs),
		Cover:       cover,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.presentPost(post))
}

// UpdatePost handles PATCH /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, cover, err := s.decodePostRequest(c)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), identity(c), postID, service.UpdatePostInput{
		PostType:    req.PostType,
		Status:      req.Status,
		Title:       req.Title,
		Excerpt:     req.Excerpt,
		Content:     req.Content,
		Calories:    req.Calories,
		CookingTime: req.CookingTime,
		TagIDs:      req.TagIDs,
		Cover:       cover,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(s.presentPost(post))
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), identity(c), postID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetPostStatus handles PATCH /api/admin/posts/:id/status
func (s *Server) SetPostStatus(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.SetStatus(c.UserContext(), identity(c), postID, req.Status)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(s.presentPost(post))
}

// ToggleLike handles POST /api/posts/:id/likes
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.postService.ToggleLike(c.UserContext(), identity(c), postID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(res)
}

// RecordView handles POST /api/posts/:id/views
func (s *Server) RecordView(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	id := identity(c)
	views, err := s.postService.RecordView(c.UserContext(), id, postID,
		service.Fingerprint(id, c.IP(), c.Get(fiber.HeaderUserAgent)))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(fiber.Map{"views": views})
}
