package server

import (
	"bloh/internal/models"
	"bloh/internal/service"

	"github.com/gofiber/fiber/v2"
)

type tokenResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (s *Server) presentToken(res *service.TokenResult) tokenResponse {
	user := s.presentUser(res.User)
	user.Email = res.User.Email
	return tokenResponse{Token: res.Token, User: user}
}

// Register handles POST /api/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.presentToken(res))
}

// IssueToken handles POST /api/auth/token
func (s *Server) IssueToken(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(s.presentToken(res))
}
