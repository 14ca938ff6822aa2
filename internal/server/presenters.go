package server

import (
	"net/url"
	"strconv"

	"bloh/internal/models"
	"bloh/internal/policy"
	"bloh/internal/repository"
	"bloh/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Responses embed the stored model and shadow image keys with public URLs.

// userResponse omits the email address unless Email is filled in explicitly.
type userResponse struct {
	*models.User
	Avatar string `json:"avatar"`
	Email  string `json:"email,omitempty"`
}

type stepResponse struct {
	models.RecipeStep
	Image string `json:"image"`
}

type postResponse struct {
	*models.Post
	CoverImage string         `json:"cover_image"`
	Author     userResponse   `json:"author"`
	Steps      []stepResponse `json:"steps,omitempty"`
}

type commentResponse struct {
	*models.Comment
	Author userResponse `json:"author"`
}

type profileResponse struct {
	userResponse
	*repository.ProfileStats
}

// pageResponse is the envelope of every paginated listing.
type pageResponse[T any] struct {
	Count    int64   `json:"count"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func (s *Server) mediaURL(key string) string {
	return s.postService.MediaURL(key)
}

func (s *Server) presentUser(u *models.User) userResponse {
	return userResponse{User: u, Avatar: s.mediaURL(u.Avatar)}
}

func (s *Server) presentSteps(steps []models.RecipeStep) []stepResponse {
	if steps == nil {
		return nil
	}
	out := make([]stepResponse, len(steps))
	for i, st := range steps {
		out[i] = stepResponse{RecipeStep: st, Image: s.mediaURL(st.Image)}
	}
	return out
}

func (s *Server) presentPost(p *models.Post) postResponse {
	return postResponse{
		Post:       p,
		CoverImage: s.mediaURL(p.CoverImage),
		Author:     s.presentUser(&p.Author),
		Steps:      s.presentSteps(p.Steps),
	}
}

func (s *Server) presentComment(cm *models.Comment) commentResponse {
	return commentResponse{Comment: cm, Author: s.presentUser(&cm.Author)}
}

// presentProfile hides the email address from everyone but the user and admins.
func (s *Server) presentProfile(id policy.Identity, p *service.Profile) profileResponse {
	resp := profileResponse{userResponse: s.presentUser(p.User), ProfileStats: p.Stats}
	if id.Admin || id.Owns(p.User.ID) {
		resp.userResponse.Email = p.User.Email
	}
	return resp
}

// presentPage wraps page items, building next/previous links from the request URL.
func presentPage[M, T any](c *fiber.Ctx, page *service.Page[M], present func(*M) T) pageResponse[T] {
	results := make([]T, len(page.Items))
	for i := range page.Items {
		results[i] = present(&page.Items[i])
	}
	resp := pageResponse[T]{
		Count:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  results,
	}
	if page.HasNext() {
		resp.Next = pageLink(c, page.Page+1)
	}
	if page.Page > 1 {
		resp.Previous = pageLink(c, page.Page-1)
	}
	return resp
}

func pageLink(c *fiber.Ctx, page int) *string {
	q, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		q = url.Values{}
	}
	q.Set("page", strconv.Itoa(page))
	link := c.BaseURL() + c.Path() + "?" + q.Encode()
	return &link
}
