package database

import "bloh/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Subscription{},
		&models.Tag{},
		&models.Ingredient{},
		&models.Post{},
		&models.PostLike{},
		&models.PostIngredient{},
		&models.RecipeStep{},
		&models.Comment{},
	}
}
