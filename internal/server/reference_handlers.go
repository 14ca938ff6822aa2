package server

import (
	"bloh/internal/models"
	"bloh/internal/service"

	"github.com/gofiber/fiber/v2"
)

type tagRequest struct {
	Name  *string `json:"name"`
	Slug  *string `json:"slug"`
	Color *string `json:"color"`
}

func (r tagRequest) input() service.TagInput {
	return service.TagInput{Name: r.Name, Slug: r.Slug, Color: r.Color}
}

// GetTags handles GET /api/tags
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.tagService.List(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(tags)
}

// GetTag handles GET /api/tags/:id
func (s *Server) GetTag(c *fiber.Ctx) error {
	tagID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	tag, err := s.tagService.Get(c.UserContext(), tagID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(tag)
}

// CreateTag handles POST /api/tags
func (s *Server) CreateTag(c *fiber.Ctx) error {
	var req tagRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	tag, err := s.tagService.Create(c.UserContext(), identity(c), req.input())
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

// UpdateTag handles PATCH /api/tags/:id
func (s *Server) UpdateTag(c *fiber.Ctx) error {
	tagID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req tagRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	tag, err := s.tagService.Update(c.UserContext(), identity(c), tagID, req.input())
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(tag)
}

// DeleteTag handles DELETE /api/tags/:id
func (s *Server) DeleteTag(c *fiber.Ctx) error {
	tagID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.tagService.Delete(c.UserContext(), identity(c), tagID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type ingredientRequest struct {
	Name string `json:"name"`
}

// GetIngredientCatalog handles GET /api/ingredients
func (s *Server) GetIngredientCatalog(c *fiber.Ctx) error {
	items, err := s.ingredientService.List(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(items)
}

// CreateIngredient handles POST /api/ingredients
func (s *Server) CreateIngredient(c *fiber.Ctx) error {
	var req ingredientRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	item, err := s.ingredientService.Create(c.UserContext(), identity(c), req.Name)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateIngredient handles PATCH /api/ingredients/:id
func (s *Server) UpdateIngredient(c *fiber.Ctx) error {
	ingredientID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req ingredientRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	item, err := s.ingredientService.Update(c.UserContext(), identity(c), ingredientID, req.Name)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(item)
}

// DeleteIngredient handles DELETE /api/ingredients/:id
func (s *Server) DeleteIngredient(c *fiber.Ctx) error {
	ingredientID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.ingredientService.Delete(c.UserContext(), identity(c), ingredientID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
