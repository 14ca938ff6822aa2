package service

import (
	"context"
	"fmt"
	"strings"

	"bloh/internal/media"
	"bloh/internal/models"
	"bloh/internal/policy"
	"bloh/internal/repository"
	"bloh/internal/storage"
	"bloh/internal/validation"
)

// IngredientItemInput is one client-submitted ingredient row.
type IngredientItemInput struct {
	ID           *uint   `json:"id"`
	IngredientID *uint   `json:"ingredient_id"`
	Quantity     *string `json:"quantity"`
	Delete       bool    `json:"_delete"`
}

// StepItemInput is one client-submitted step. Image is attached from the
// step_images_{index} form field.
type StepItemInput struct {
	ID          *uint         `json:"id"`
	Order       *int          `json:"order"`
	Description *string       `json:"description"`
	Delete      bool          `json:"_delete"`
	Image       *media.Upload `json:"-"`
}

// RecipeService reconciles a post's ingredients and steps.
type RecipeService struct {
	posts       repository.PostRepository
	recipes     repository.RecipeRepository
	ingredients repository.IngredientRepository
	images      imageStore
}

func NewRecipeService(
	posts repository.PostRepository,
	recipes repository.RecipeRepository,
	ingredients repository.IngredientRepository,
	store storage.Storage,
	validator media.Validator,
) *RecipeService {
	return &RecipeService{
		posts:       posts,
		recipes:     recipes,
		ingredients: ingredients,
		images:      imageStore{store: store, validator: validator},
	}
}

// MediaURL resolves a stored image key into a public URL.
func (s *RecipeService) MediaURL(key string) string {
	return s.images.URL(key)
}

// authorize loads the post and applies the owner-or-admin write rule. Drafts the
// caller cannot see are reported as missing.
func (s *RecipeService) authorize(ctx context.Context, id policy.Identity, postID uint) error {
	if err := policy.Authenticated.Check(id, policy.Write, 0); err != nil {
		return err
	}
	post, err := s.posts.GetByID(ctx, postID, id.UserID)
	if err != nil {
		return err
	}
	if !canSee(id, post) {
		return models.NewNotFoundError("Post", postID)
	}
	return policy.OwnerOrAdmin.Check(id, policy.Write, post.AuthorID)
}

func (s *RecipeService) ListIngredients(ctx context.Context, postID uint) ([]models.PostIngredient, error) {
	return s.recipes.ListIngredients(ctx, postID)
}

func (s *RecipeService) ListSteps(ctx context.Context, postID uint) ([]models.RecipeStep, error) {
	return s.recipes.ListSteps(ctx, postID)
}

// SyncIngredients reconciles the post's ingredient rows with items.
func (s *RecipeService) SyncIngredients(ctx context.Context, id policy.Identity, postID uint, items []IngredientItemInput) ([]models.PostIngredient, error) {
	if err := s.authorize(ctx, id, postID); err != nil {
		return nil, err
	}
	repoItems, err := s.prepareIngredients(ctx, items, false)
	if err != nil {
		return nil, err
	}
	return s.recipes.SyncIngredients(ctx, postID, repoItems)
}

// AddIngredients appends items, or replaces every row when replace is set.
func (s *RecipeService) AddIngredients(ctx context.Context, id policy.Identity, postID uint, replace bool, items []IngredientItemInput) ([]models.PostIngredient, error) {
	if err := s.authorize(ctx, id, postID); err != nil {
		return nil, err
	}
	repoItems, err := s.prepareIngredients(ctx, items, true)
	if err != nil {
		return nil, err
	}
	return s.recipes.AddIngredients(ctx, postID, repoItems, replace)
}

// prepareIngredients validates every item before anything is written. createOnly
// treats each item as a new row.
func (s *RecipeService) prepareIngredients(ctx context.Context, items []IngredientItemInput, createOnly bool) ([]repository.IngredientItem, error) {
	out := make([]repository.IngredientItem, 0, len(items))
	var referenced []uint
	for i, item := range items {
		field := fmt.Sprintf("items[%d]", i)
		isNew := createOnly || item.ID == nil
		if createOnly && item.Delete {
			return nil, models.NewFieldValidationError(field+"._delete", "_delete is not allowed here")
		}
		if isNew && !item.Delete {
			if item.IngredientID == nil || *item.IngredientID == 0 {
				return nil, models.NewFieldValidationError(field+".ingredient_id", "ingredient_id is required")
			}
			if item.Quantity == nil || strings.TrimSpace(*item.Quantity) == "" {
				return nil, models.NewFieldValidationError(field+".quantity", "quantity is required")
			}
		}
		if item.Quantity != nil {
			if err := validation.ValidateMaxLength("quantity", *item.Quantity, validation.MaxQuantityLength); err != nil {
				return nil, models.NewFieldValidationError(field+".quantity", err.Error())
			}
		}
		if item.IngredientID != nil && *item.IngredientID != 0 && !item.Delete {
			referenced = append(referenced, *item.IngredientID)
		}

		ri := repository.IngredientItem{Quantity: trimmed(item.Quantity), Delete: item.Delete}
		if !createOnly {
			ri.ID = item.ID
		}
		if item.IngredientID != nil {
			ri.IngredientID = *item.IngredientID
		}
		out = append(out, ri)
	}

	missing, err := s.ingredients.MissingIDs(ctx, uniqueIDs(referenced))
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, models.NewNotFoundError("Ingredient", missing[0])
	}
	return out, nil
}

// SyncSteps reconciles the post's steps with items and renumbers them 1..N.
// New images are stored before the transaction and removed again if it fails;
// replaced images are removed after it commits.
func (s *RecipeService) SyncSteps(ctx context.Context, id policy.Identity, postID uint, items []StepItemInput) ([]models.RecipeStep, error) {
	return s.writeSteps(ctx, id, postID, items, false, func(repoItems []repository.StepItem) ([]models.RecipeStep, []string, error) {
		return s.recipes.SyncSteps(ctx, postID, repoItems)
	})
}

// AddSteps appends items, or replaces every step when replace is set.
func (s *RecipeService) AddSteps(ctx context.Context, id policy.Identity, postID uint, replace bool, items []StepItemInput) ([]models.RecipeStep, error) {
	return s.writeSteps(ctx, id, postID, items, true, func(repoItems []repository.StepItem) ([]models.RecipeStep, []string, error) {
		return s.recipes.AddSteps(ctx, postID, repoItems, replace)
	})
}

func (s *RecipeService) writeSteps(
	ctx context.Context,
	id policy.Identity,
	postID uint,
	items []StepItemInput,
	createOnly bool,
	apply func([]repository.StepItem) ([]models.RecipeStep, []string, error),
) ([]models.RecipeStep, error) {
	if err := s.authorize(ctx, id, postID); err != nil {
		return nil, err
	}

	validated := make([]*media.Image, len(items))
	for i, item := range items {
		field := fmt.Sprintf("step_data[%d]", i)
		isNew := createOnly || item.ID == nil
		if createOnly && item.Delete {
			return nil, models.NewFieldValidationError(field+"._delete", "_delete is not allowed here")
		}
		if isNew && !item.Delete {
			if item.Description == nil {
				return nil, models.NewFieldValidationError(field+".description", "description is required")
			}
		}
		if item.Description != nil {
			if err := validation.ValidateText("description", *item.Description, validation.MaxContentLength); err != nil {
				return nil, models.NewFieldValidationError(field+".description", err.Error())
			}
		}
		if item.Order != nil && *item.Order < 1 {
			return nil, models.NewFieldValidationError(field+".order", "order must be a positive integer")
		}
		if item.Image != nil && !item.Delete {
			img, err := s.images.validator.Validate(fmt.Sprintf("step_images_%d", i), *item.Image)
			if err != nil {
				return nil, err
			}
			validated[i] = img
		}
	}

	repoItems := make([]repository.StepItem, len(items))
	var uploaded []string
	for i, item := range items {
		ri := repository.StepItem{Order: item.Order, Description: trimmed(item.Description), Delete: item.Delete}
		if !createOnly {
			ri.ID = item.ID
		}
		if validated[i] != nil {
			key, err := s.images.put(ctx, StepPrefix, validated[i])
			if err != nil {
				s.images.removeAll(ctx, uploaded...)
				return nil, err
			}
			uploaded = append(uploaded, key)
			ri.Image = &key
		}
		repoItems[i] = ri
	}

	steps, orphaned, err := apply(repoItems)
	if err != nil {
		s.images.removeAll(ctx, uploaded...)
		return nil, err
	}
	s.images.removeAll(ctx, orphaned...)
	s.images.removeAll(ctx, unusedUploads(uploaded, steps)...)
	return steps, nil
}

// unusedUploads are uploads attached to items that were skipped as foreign.
func unusedUploads(uploaded []string, steps []models.RecipeStep) []string {
	if len(uploaded) == 0 {
		return nil
	}
	inUse := make(map[string]bool, len(steps))
	for _, st := range steps {
		inUse[st.Image] = true
	}
	var out []string
	for _, key := range uploaded {
		if !inUse[key] {
			out = append(out, key)
		}
	}
	return out
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
