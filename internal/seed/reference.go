package seed

import (
	"fmt"

	"bloh/internal/models"

	"gorm.io/gorm"
)

// BuiltInTags is the tag catalog every environment starts with.
var BuiltInTags = []models.Tag{
	{Name: "Breakfast", Color: "#F4B400"},
	{Name: "Lunch", Color: "#0F9D58"},
	{Name: "Dinner", Color: "#DB4437"},
	{Name: "Dessert", Color: "#AB47BC"},
	{Name: "Vegetarian", Color: "#7CB342"},
	{Name: "Vegan", Color: "#33691E"},
	{Name: "Quick", Color: "#039BE5"},
	{Name: "Baking", Color: "#8D6E63"},
	{Name: "Soup", Color: "#FF7043"},
	{Name: "Kitchen Notes", Color: "#546E7A"},
}

// BuiltInIngredients is the ingredient catalog every environment starts with.
var BuiltInIngredients = []string{
	"Flour", "Sugar", "Salt", "Butter", "Eggs", "Milk", "Olive oil", "Garlic",
	"Onion", "Tomato", "Carrot", "Potato", "Rice", "Pasta", "Chicken breast",
	"Beef mince", "Lemon", "Basil", "Black pepper", "Parmesan", "Yeast", "Honey",
	"Cinnamon", "Chickpeas", "Spinach",
}

// Reference makes sure the built-in tags and ingredients exist. It is idempotent.
func Reference(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, item := range BuiltInTags {
			tag := item
			tag.Slug = models.TagSlug(tag.Name)
			if err := tx.Where(models.Tag{Slug: tag.Slug}).
				Attrs(models.Tag{Name: tag.Name, Color: tag.Color}).
				FirstOrCreate(&tag).Error; err != nil {
				return fmt.Errorf("seed tag %q: %w", item.Name, err)
			}
		}
		for _, name := range BuiltInIngredients {
			ingredient := models.Ingredient{Name: name}
			if err := tx.Where(models.Ingredient{Name: name}).FirstOrCreate(&ingredient).Error; err != nil {
				return fmt.Errorf("seed ingredient %q: %w", name, err)
			}
		}
		return nil
	})
}
