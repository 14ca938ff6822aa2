package server

import (
	"context"

	"bloh/internal/models"
	"bloh/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	id := identity(c)
	profile, err := s.userService.Me(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(s.presentProfile(id, profile))
}

// UpdateMyProfile handles PATCH /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Email       *string `json:"email"`
		DisplayName *string `json:"display_name"`
		Role        *string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	id := identity(c)
	profile, err := s.userService.UpdateMe(c.UserContext(), id, service.UpdateProfileInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(s.presentProfile(id, profile))
}

// UploadAvatar handles POST /api/users/me/avatar
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	upload, err := s.formUpload(c, "avatar")
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	if upload == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError("avatar", "No file uploaded"))
	}

	user, err := s.userService.UploadAvatar(c.UserContext(), identity(c), *upload)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(fiber.Map{"avatar": s.mediaURL(user.Avatar)})
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	id := identity(c)
	profile, err := s.userService.GetProfile(c.UserContext(), id, userID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(s.presentProfile(id, profile))
}

// GetFollowers handles GET /api/users/:id/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	return s.listEdges(c, s.userService.Followers)
}

// GetFollowing handles GET /api/users/:id/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	return s.listEdges(c, s.userService.Following)
}

func (s *Server) listEdges(c *fiber.Ctx, list func(context.Context, uint, int, int) (*service.Page[models.User], error)) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page, size, err := queryPage(c)
	if err != nil {
		return nil
	}
	users, err := list(c.UserContext(), userID, page, size)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(presentPage(c, users, s.presentUser))
}

// Subscribe handles POST /api/users/:id/subscribe
func (s *Server) Subscribe(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.Subscribe(c.UserContext(), identity(c), targetID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"subscribed": true})
}

// Unsubscribe handles DELETE /api/users/:id/subscribe
func (s *Server) Unsubscribe(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.userService.Unsubscribe(c.UserContext(), identity(c), targetID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
