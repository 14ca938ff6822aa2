package models

// Ingredient is shared reference data; the per-post quantity lives on PostIngredient.
type Ingredient struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:128;uniqueIndex;not null" json:"name"`
}

// PostIngredient joins a post with an ingredient and a free-form quantity.
type PostIngredient struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	PostID       uint       `gorm:"not null;index" json:"post_id"`
	IngredientID uint       `gorm:"not null;index" json:"ingredient_id"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient"`
	Quantity     string     `gorm:"size:64" json:"quantity"`
}

// RecipeStep is one instruction of a recipe. Order values of a post form 1..N
// after every synchronization.
type RecipeStep struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	PostID      uint   `gorm:"not null;index" json:"post_id"`
	Order       int    `gorm:"column:step_order;not null" json:"order"`
	Description string `gorm:"type:text;not null" json:"description"`
	Image       string `json:"image"`
}
