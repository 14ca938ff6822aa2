package server

import (
	"context"
	"errors"

	"bloh/internal/middleware"
	"bloh/internal/models"
	"bloh/internal/policy"

	"github.com/gofiber/fiber/v2"
)

const identityLocal = "identity"

// AuthRequired rejects requests without a valid bearer token whose subject still exists.
// Admin rights are read from the stored user, not from the token's role claim.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := middleware.BearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		id, err := s.resolveIdentity(c.UserContext(), token)
		if err != nil {
			if models.ErrorCode(err) == models.CodeInternal {
				return models.RespondWithError(c, fiber.StatusInternalServerError, err)
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		setIdentity(c, id)
		return c.Next()
	}
}

// OptionalAuth attaches an identity when a valid token is presented and
// treats missing or invalid tokens as anonymous.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := middleware.BearerToken(c)
		if token == "" {
			return c.Next()
		}
		id, err := s.resolveIdentity(c.UserContext(), token)
		if err != nil {
			return c.Next()
		}
		setIdentity(c, id)
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that the identity is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !identity(c).Admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

func (s *Server) resolveIdentity(ctx context.Context, token string) (policy.Identity, error) {
	claims, err := middleware.ParseToken(s.config.JWTSecret, token)
	if err != nil {
		return policy.Anonymous, models.NewUnauthorizedError("Invalid or expired token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return policy.Anonymous, models.NewUnauthorizedError("Invalid subject claim")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return policy.Anonymous, models.NewUnauthorizedError("User no longer exists")
		}
		return policy.Anonymous, models.NewInternalError(err)
	}
	return policy.Identity{UserID: user.ID, Admin: user.IsAdmin()}, nil
}

func setIdentity(c *fiber.Ctx, id policy.Identity) {
	c.Locals("userID", id.UserID)
	c.Locals(identityLocal, id)
	// Sync to UserContext for logging and downstream services
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, id.UserID))
}

// identity returns the caller attached by AuthRequired or OptionalAuth, or Anonymous.
func identity(c *fiber.Ctx) policy.Identity {
	if id, ok := c.Locals(identityLocal).(policy.Identity); ok {
		return id
	}
	return policy.Anonymous
}
