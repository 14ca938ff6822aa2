package repository

import (
	"context"

	"bloh/internal/models"
	"bloh/internal/observability"

	"gorm.io/gorm"
)

// IngredientItem is one entry of an ingredient synchronization request.
// A nil ID inserts; Quantity nil keeps the stored value on update.
type IngredientItem struct {
	ID           *uint
	IngredientID uint
	Quantity     *string
	Delete       bool
}

// StepItem is one entry of a step synchronization request. Image holds the
// storage key of a freshly uploaded image, if any.
type StepItem struct {
	ID          *uint
	Order       *int
	Description *string
	Image       *string
	Delete      bool
}

// RecipeRepository reconciles a post's ingredient and step rows.
type RecipeRepository interface {
	ListIngredients(ctx context.Context, postID uint) ([]models.PostIngredient, error)
	ListSteps(ctx context.Context, postID uint) ([]models.RecipeStep, error)
	SyncIngredients(ctx context.Context, postID uint, items []IngredientItem) ([]models.PostIngredient, error)
	AddIngredients(ctx context.Context, postID uint, items []IngredientItem, replace bool) ([]models.PostIngredient, error)
	SyncSteps(ctx context.Context, postID uint, items []StepItem) ([]models.RecipeStep, []string, error)
	AddSteps(ctx context.Context, postID uint, items []StepItem, replace bool) ([]models.RecipeStep, []string, error)
}

type recipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new RecipeRepository
func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) ListIngredients(ctx context.Context, postID uint) ([]models.PostIngredient, error) {
	return listIngredients(r.db.WithContext(ctx), postID)
}

func (r *recipeRepository) ListSteps(ctx context.Context, postID uint) ([]models.RecipeStep, error) {
	return listSteps(r.db.WithContext(ctx), postID)
}

func listIngredients(db *gorm.DB, postID uint) ([]models.PostIngredient, error) {
	var rows []models.PostIngredient
	if err := db.Preload("Ingredient").Where("post_id = ?", postID).Order("id").Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func listSteps(db *gorm.DB, postID uint) ([]models.RecipeStep, error) {
	var rows []models.RecipeStep
	if err := db.Where("post_id = ?", postID).Order("step_order, id").Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

// SyncIngredients applies items in order inside one transaction. Items naming an
// id that does not belong to postID are skipped.
func (r *recipeRepository) SyncIngredients(ctx context.Context, postID uint, items []IngredientItem) ([]models.PostIngredient, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "SyncIngredients", "post_ingredients")
	var out []models.PostIngredient
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := applyIngredientItem(tx, postID, item); err != nil {
				return err
			}
		}
		var err error
		out, err = listIngredients(tx, postID)
		return err
	})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// AddIngredients inserts items, first clearing the post's rows when replace is set.
func (r *recipeRepository) AddIngredients(ctx context.Context, postID uint, items []IngredientItem, replace bool) ([]models.PostIngredient, error) {
	var out []models.PostIngredient
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if replace {
			if err := tx.Where("post_id = ?", postID).Delete(&models.PostIngredient{}).Error; err != nil {
				return err
			}
		}
		for _, item := range items {
			row := models.PostIngredient{PostID: postID, IngredientID: item.IngredientID, Quantity: deref(item.Quantity)}
			if err := tx.Omit("Ingredient").Create(&row).Error; err != nil {
				return err
			}
			observability.SyncItems.WithLabelValues("ingredient", "insert").Inc()
		}
		var err error
		out, err = listIngredients(tx, postID)
		return err
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func applyIngredientItem(tx *gorm.DB, postID uint, item IngredientItem) error {
	if item.ID == nil {
		if item.Delete {
			observability.SyncItems.WithLabelValues("ingredient", "noop").Inc()
			return nil
		}
		row := models.PostIngredient{PostID: postID, IngredientID: item.IngredientID, Quantity: deref(item.Quantity)}
		if err := tx.Omit("Ingredient").Create(&row).Error; err != nil {
			return err
		}
		observability.SyncItems.WithLabelValues("ingredient", "insert").Inc()
		return nil
	}

	var existing models.PostIngredient
	found := tx.Where("id = ? AND post_id = ?", *item.ID, postID).Limit(1).Find(&existing)
	if found.Error != nil {
		return found.Error
	}
	if found.RowsAffected == 0 {
		observability.SyncItems.WithLabelValues("ingredient", "skip").Inc()
		return nil
	}

	if item.Delete {
		observability.SyncItems.WithLabelValues("ingredient", "delete").Inc()
		return tx.Delete(&existing).Error
	}

	if item.IngredientID != 0 {
		existing.IngredientID = item.IngredientID
	}
	if item.Quantity != nil {
		existing.Quantity = *item.Quantity
	}
	observability.SyncItems.WithLabelValues("ingredient", "update").Inc()
	return tx.Model(&existing).Select("ingredient_id", "quantity").Updates(&existing).Error
}

// SyncSteps applies items in order, then renumbers the surviving steps 1..N.
// The returned keys are images that were replaced or whose step was deleted; the
// caller removes them once the transaction has committed.
func (r *recipeRepository) SyncSteps(ctx context.Context, postID uint, items []StepItem) ([]models.RecipeStep, []string, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "SyncSteps", "recipe_steps")
	var (
		out      []models.RecipeStep
		orphaned []string
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			stale, err := applyStepItem(tx, postID, item)
			if err != nil {
				return err
			}
			if stale != "" {
				orphaned = append(orphaned, stale)
			}
		}
		var err error
		out, err = renormalizeSteps(tx, postID)
		return err
	})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	return out, orphaned, nil
}

// AddSteps inserts items after the existing steps, or in their place when replace is set.
func (r *recipeRepository) AddSteps(ctx context.Context, postID uint, items []StepItem, replace bool) ([]models.RecipeStep, []string, error) {
	var (
		out      []models.RecipeStep
		orphaned []string
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if replace {
			var old []models.RecipeStep
			if err := tx.Where("post_id = ?", postID).Find(&old).Error; err != nil {
				return err
			}
			for _, s := range old {
				if s.Image != "" {
					orphaned = append(orphaned, s.Image)
				}
			}
			if err := tx.Where("post_id = ?", postID).Delete(&models.RecipeStep{}).Error; err != nil {
				return err
			}
		}
		for _, item := range items {
			item.ID = nil
			item.Delete = false
			if _, err := applyStepItem(tx, postID, item); err != nil {
				return err
			}
		}
		var err error
		out, err = renormalizeSteps(tx, postID)
		return err
	})
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	return out, orphaned, nil
}

func applyStepItem(tx *gorm.DB, postID uint, item StepItem) (string, error) {
	if item.ID == nil {
		if item.Delete {
			observability.SyncItems.WithLabelValues("step", "noop").Inc()
			return "", nil
		}
		order, err := nextStepOrder(tx, postID, item.Order)
		if err != nil {
			return "", err
		}
		row := models.RecipeStep{PostID: postID, Order: order, Description: deref(item.Description), Image: deref(item.Image)}
		if err := tx.Create(&row).Error; err != nil {
			return "", err
		}
		observability.SyncItems.WithLabelValues("step", "insert").Inc()
		return "", nil
	}

	var existing models.RecipeStep
	found := tx.Where("id = ? AND post_id = ?", *item.ID, postID).Limit(1).Find(&existing)
	if found.Error != nil {
		return "", found.Error
	}
	if found.RowsAffected == 0 {
		observability.SyncItems.WithLabelValues("step", "skip").Inc()
		return "", nil
	}

	if item.Delete {
		observability.SyncItems.WithLabelValues("step", "delete").Inc()
		return existing.Image, tx.Delete(&existing).Error
	}

	var stale string
	if item.Order != nil {
		existing.Order = *item.Order
	}
	if item.Description != nil {
		existing.Description = *item.Description
	}
	if item.Image != nil && *item.Image != existing.Image {
		stale = existing.Image
		existing.Image = *item.Image
	}
	observability.SyncItems.WithLabelValues("step", "update").Inc()
	return stale, tx.Model(&existing).Select("step_order", "description", "image").Updates(&existing).Error
}

// nextStepOrder honours an explicit order and otherwise appends after the last step.
func nextStepOrder(tx *gorm.DB, postID uint, requested *int) (int, error) {
	if requested != nil {
		return *requested, nil
	}
	var maxOrder int
	if err := tx.Model(&models.RecipeStep{}).
		Where("post_id = ?", postID).
		Select("COALESCE(MAX(step_order), 0)").
		Scan(&maxOrder).Error; err != nil {
		return 0, err
	}
	return maxOrder + 1, nil
}

// renormalizeSteps renumbers the post's steps 1..N in (order, id) sequence and
// writes only rows whose order changed.
func renormalizeSteps(tx *gorm.DB, postID uint) ([]models.RecipeStep, error) {
	var steps []models.RecipeStep
	if err := tx.Where("post_id = ?", postID).Order("step_order, id").Find(&steps).Error; err != nil {
		return nil, err
	}
	for i := range steps {
		want := i + 1
		if steps[i].Order == want {
			continue
		}
		if err := tx.Model(&steps[i]).UpdateColumn("step_order", want).Error; err != nil {
			return nil, err
		}
		steps[i].Order = want
		observability.SyncItems.WithLabelValues("step", "renumber").Inc()
	}
	return steps, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
