package server

import (
	"encoding/json"
	"strconv"
	"strings"

	"bloh/internal/models"
	"bloh/internal/service"

	"github.com/gofiber/fiber/v2"
)

const stepImagePrefix = "step_images_"

type ingredientBatchRequest struct {
	Replace bool                          `json:"replace"`
	Items   []service.IngredientItemInput `json:"items"`
}

type stepBatchRequest struct {
	Replace bool                    `json:"replace"`
	Items   []service.StepItemInput `json:"items"`
}

// GetIngredients handles GET /api/posts/:id/ingredients
func (s *Server) GetIngredients(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.postService.GetPost(c.UserContext(), identity(c), postID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	items, err := s.recipeService.ListIngredients(c.UserContext(), postID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(items)
}

// AddIngredients handles POST /api/posts/:id/ingredients
func (s *Server) AddIngredients(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req ingredientBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	items, err := s.recipeService.AddIngredients(c.UserContext(), identity(c), postID, req.Replace, req.Items)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(items)
}

// SyncIngredients handles PATCH /api/posts/:id/ingredients/sync
func (s *Server) SyncIngredients(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req []service.IngredientItemInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Expected a list of ingredient items"))
	}

	items, err := s.recipeService.SyncIngredients(c.UserContext(), identity(c), postID, req)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(items)
}

// GetSteps handles GET /api/posts/:id/steps
func (s *Server) GetSteps(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.postService.GetPost(c.UserContext(), identity(c), postID); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	steps, err := s.recipeService.ListSteps(c.UserContext(), postID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(s.presentSteps(steps))
}

// AddSteps handles POST /api/posts/:id/steps
func (s *Server) AddSteps(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.decodeStepRequest(c, true)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	steps, err := s.recipeService.AddSteps(c.UserContext(), identity(c), postID, req.Replace, req.Items)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.presentSteps(steps))
}

// SyncSteps handles PATCH /api/posts/:id/steps/sync
func (s *Server) SyncSteps(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.decodeStepRequest(c, false)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	steps, err := s.recipeService.SyncSteps(c.UserContext(), identity(c), postID, req.Items)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(s.presentSteps(steps))
}

// decodeStepRequest reads step items either from a JSON body or from a multipart
// form whose step_data part holds the item list and whose step_images_{i} parts
// hold the image of item i. batch selects the {replace, items} JSON shape.
func (s *Server) decodeStepRequest(c *fiber.Ctx, batch bool) (*stepBatchRequest, error) {
	req := &stepBatchRequest{}
	if !isMultipart(c) {
		var err error
		if batch {
			err = c.BodyParser(req)
		} else {
			err = c.BodyParser(&req.Items)
		}
		if err != nil {
			return nil, models.NewValidationError("Invalid request body")
		}
		return req, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError("Invalid multipart body")
	}
	raw := form.Value["step_data"]
	if len(raw) == 0 || strings.TrimSpace(raw[0]) == "" {
		return nil, models.NewFieldValidationError("step_data", "This field is required")
	}
	if err := json.Unmarshal([]byte(raw[0]), &req.Items); err != nil {
		return nil, models.NewFieldValidationError("step_data", "Expected a JSON list of steps")
	}
	if v := form.Value["replace"]; len(v) > 0 {
		req.Replace = formBool(v[0])
	}

	for field, files := range form.File {
		if !strings.HasPrefix(field, stepImagePrefix) || len(files) == 0 {
			continue
		}
		i, err := strconv.Atoi(strings.TrimPrefix(field, stepImagePrefix))
		if err != nil || i < 0 || i >= len(req.Items) {
			return nil, models.NewFieldValidationError(field, "No step matches this image")
		}
		upload, err := s.readUpload(field, files[0])
		if err != nil {
			return nil, err
		}
		req.Items[i].Image = upload
	}
	return req, nil
}
