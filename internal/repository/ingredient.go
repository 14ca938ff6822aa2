package repository

import (
	"context"

	"bloh/internal/cache"
	"bloh/internal/models"

	"gorm.io/gorm"
)

// IngredientRepository defines persistence operations for ingredients.
type IngredientRepository interface {
	List(ctx context.Context) ([]models.Ingredient, error)
	GetByID(ctx context.Context, id uint) (*models.Ingredient, error)
	MissingIDs(ctx context.Context, ids []uint) ([]uint, error)
	ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error)
	Create(ctx context.Context, ingredient *models.Ingredient) error
	Update(ctx context.Context, ingredient *models.Ingredient) error
	Delete(ctx context.Context, id uint) error
}

type ingredientRepository struct {
	db *gorm.DB
}

// NewIngredientRepository returns a new IngredientRepository implementation.
func NewIngredientRepository(db *gorm.DB) IngredientRepository {
	return &ingredientRepository{db: db}
}

func (r *ingredientRepository) List(ctx context.Context) ([]models.Ingredient, error) {
	var out []models.Ingredient
	err := cache.Aside(ctx, cache.IngredientListKey, &out, cache.ReferenceListTTL, func() error {
		return readDB(r.db).WithContext(ctx).Order("name").Find(&out).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *ingredientRepository) GetByID(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ing models.Ingredient
	if err := readDB(r.db).WithContext(ctx).First(&ing, id).Error; err != nil {
		return nil, notFoundOr(err, "Ingredient", id)
	}
	return &ing, nil
}

// MissingIDs returns the ids that do not name an ingredient, in input order.
func (r *ingredientRepository) MissingIDs(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	if err := r.db.WithContext(ctx).Model(&models.Ingredient{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	present := make(map[uint]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []uint
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *ingredientRepository) ExistsByName(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Ingredient{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", name, excludeID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *ingredientRepository) Create(ctx context.Context, ingredient *models.Ingredient) error {
	if err := r.db.WithContext(ctx).Create(ingredient).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateIngredients(ctx)
	return nil
}

func (r *ingredientRepository) Update(ctx context.Context, ingredient *models.Ingredient) error {
	if err := r.db.WithContext(ctx).Save(ingredient).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateIngredients(ctx)
	return nil
}

// Delete removes the ingredient and every post row that uses it.
func (r *ingredientRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ingredient_id = ?", id).Delete(&models.PostIngredient{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Ingredient{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return notFoundOr(err, "Ingredient", id)
	}
	cache.InvalidateIngredients(ctx)
	return nil
}
