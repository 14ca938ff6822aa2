package server

import (
	"bloh/internal/models"
	"bloh/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page, size, err := queryPage(c)
	if err != nil {
		return nil
	}

	comments, err := s.commentService.ListComments(c.UserContext(), identity(c), postID, page, size)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(presentPage(c, comments, s.presentComment))
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content         string `json:"content"`
		ParentCommentID *uint  `json:"parent_comment"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), identity(c), service.CreateCommentInput{
		PostID:          postID,
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.presentComment(comment))
}

// UpdateComment handles PATCH /api/comments/:id
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), identity(c), commentID, req.Content)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(s.presentComment(comment))
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.DeleteComment(c.UserContext(), identity(c), commentID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
