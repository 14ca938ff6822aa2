// Package seed creates demo data for development databases and tests.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bloh/internal/models"
	"bloh/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	faker  *gofakeit.Faker
	opts   Options
	hashed string
	seq    int
}

// NewFactory creates a Factory bound to db. A zero Options.RandomSeed picks a random seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	return &Factory{db: db, faker: gofakeit.New(opts.RandomSeed), opts: opts}
}

func (f *Factory) password() (string, error) {
	if f.opts.SkipBcrypt {
		return DemoPassword, nil
	}
	if f.hashed == "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		f.hashed = string(hashed)
	}
	return f.hashed, nil
}

// CreateUser persists a fake account. Overrides run before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	password, err := f.password()
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	f.seq++
	username := fmt.Sprintf("%s%d", strings.ToLower(f.faker.Username()), f.seq)
	user := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		Password:    password,
		DisplayName: f.faker.Name(),
		Role:        models.RoleUser,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs an unsaved post by author. Recipes get nutrition data.
func (f *Factory) BuildPost(author *models.User, postType models.PostType, tags []models.Tag) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	created := time.Now().Add(-time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute)

	post := &models.Post{
		PostType:  postType,
		Status:    models.PostStatusPublished,
		AuthorID:  author.ID,
		Excerpt:   f.faker.Sentence(12),
		Content:   f.faker.Paragraph(3, 4, 12, "\n\n"),
		CreatedAt: created,
	}
	if f.faker.Number(1, 10) == 1 {
		post.Status = models.PostStatusDraft
	}

	switch postType {
	case models.PostTypeRecipe:
		post.Title = f.dishName()
		calories := f.faker.Number(120, 1200)
		cookingTime := f.faker.Number(5, 180)
		post.Calories = &calories
		post.CookingTime = &cookingTime
	default:
		post.Title = strings.TrimSuffix(f.faker.Sentence(6), ".")
	}

	if len(tags) > 0 {
		n := f.faker.Number(1, min(3, len(tags)))
		picked := make([]models.Tag, len(tags))
		copy(picked, tags)
		f.faker.ShuffleAnySlice(picked)
		post.Tags = picked[:n]
	}
	return post
}

func (f *Factory) dishName() string {
	dishes := []func() string{f.faker.Breakfast, f.faker.Lunch, f.faker.Dinner, f.faker.Dessert}
	return dishes[f.faker.Number(0, len(dishes)-1)]()
}

// CreatePost persists a post with its tag links.
func (f *Factory) CreatePost(post *models.Post) error {
	return repository.NewPostRepository(f.db).Create(context.Background(), post)
}

// AddRecipeDetails attaches ingredients and ordered steps to a recipe post.
func (f *Factory) AddRecipeDetails(post *models.Post, ingredients []models.Ingredient) error {
	if len(ingredients) > 0 {
		n := f.faker.Number(2, min(8, len(ingredients)))
		picked := make([]models.Ingredient, len(ingredients))
		copy(picked, ingredients)
		f.faker.ShuffleAnySlice(picked)

		rows := make([]models.PostIngredient, 0, n)
		for _, ing := range picked[:n] {
			rows = append(rows, models.PostIngredient{
				PostID:       post.ID,
				IngredientID: ing.ID,
				Quantity:     fmt.Sprintf("%d %s", f.faker.Number(1, 500), f.faker.RandomString([]string{"g", "ml", "pcs", "tbsp", "tsp"})),
			})
		}
		if err := f.db.Create(&rows).Error; err != nil {
			return fmt.Errorf("seed ingredients: %w", err)
		}
	}

	steps := make([]models.RecipeStep, f.faker.Number(2, 7))
	for i := range steps {
		steps[i] = models.RecipeStep{
			PostID:      post.ID,
			Order:       i + 1,
			Description: f.faker.Sentence(10),
		}
	}
	if err := f.db.Create(&steps).Error; err != nil {
		return fmt.Errorf("seed steps: %w", err)
	}
	return nil
}

// CreateComment persists a comment on post, optionally replying to parent.
func (f *Factory) CreateComment(post *models.Post, author *models.User, parent *models.Comment) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		Content:  f.faker.Sentence(f.faker.Number(4, 20)),
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}
