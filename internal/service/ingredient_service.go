package service

import (
	"context"
	"strings"

	"bloh/internal/models"
	"bloh/internal/policy"
	"bloh/internal/repository"
	"bloh/internal/validation"
)

// IngredientService manages shared ingredients. Any signed-in user may add one;
// renaming and deleting are reserved for admins.
type IngredientService struct {
	ingredients repository.IngredientRepository
}

func NewIngredientService(ingredients repository.IngredientRepository) *IngredientService {
	return &IngredientService{ingredients: ingredients}
}

func (s *IngredientService) List(ctx context.Context) ([]models.Ingredient, error) {
	return s.ingredients.List(ctx)
}

func (s *IngredientService) Create(ctx context.Context, id policy.Identity, name string) (*models.Ingredient, error) {
	if err := policy.Authenticated.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}
	ingredient := &models.Ingredient{}
	if err := s.rename(ctx, ingredient, name); err != nil {
		return nil, err
	}
	if err := s.ingredients.Create(ctx, ingredient); err != nil {
		return nil, err
	}
	return ingredient, nil
}

func (s *IngredientService) Update(ctx context.Context, id policy.Identity, ingredientID uint, name string) (*models.Ingredient, error) {
	if err := policy.AdminWrite.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}
	ingredient, err := s.ingredients.GetByID(ctx, ingredientID)
	if err != nil {
		return nil, err
	}
	if err := s.rename(ctx, ingredient, name); err != nil {
		return nil, err
	}
	if err := s.ingredients.Update(ctx, ingredient); err != nil {
		return nil, err
	}
	return ingredient, nil
}

// Delete removes the ingredient together with every recipe row using it.
func (s *IngredientService) Delete(ctx context.Context, id policy.Identity, ingredientID uint) error {
	if err := policy.AdminWrite.Check(id, policy.Write, 0); err != nil {
		return err
	}
	if _, err := s.ingredients.GetByID(ctx, ingredientID); err != nil {
		return err
	}
	return s.ingredients.Delete(ctx, ingredientID)
}

func (s *IngredientService) rename(ctx context.Context, ingredient *models.Ingredient, name string) error {
	name = strings.TrimSpace(name)
	if err := validation.ValidateText("name", name, validation.MaxIngredientName); err != nil {
		return models.NewFieldValidationError("name", err.Error())
	}
	taken, err := s.ingredients.ExistsByName(ctx, name, ingredient.ID)
	if err != nil {
		return err
	}
	if taken {
		return models.NewFieldValidationError("name", "An ingredient with this name already exists")
	}
	ingredient.Name = name
	return nil
}
