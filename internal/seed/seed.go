package seed

import (
	"fmt"
	"log/slog"

	"bloh/internal/middleware"
	"bloh/internal/models"

	"gorm.io/gorm"
)

// Options configure a seeding run.
type Options struct {
	NumUsers int
	NumPosts int
	// MaxDays spreads post creation dates over the last MaxDays days.
	MaxDays    int
	SkipBcrypt bool
	RandomSeed int64
}

// Summary counts what a run created.
type Summary struct {
	Users         int
	Posts         int
	Comments      int
	Likes         int
	Subscriptions int
}

// Seeder populates a database with demo users, posts and engagement.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// ClearAll deletes every row the seeder can create, children first.
func (s *Seeder) ClearAll() error {
	tables := []any{
		&models.Comment{},
		&models.RecipeStep{},
		&models.PostIngredient{},
		&models.PostLike{},
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec("DELETE FROM post_tags").Error; err != nil {
			return err
		}
		for _, model := range []any{&models.Post{}, &models.Subscription{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		middleware.Logger.Info("seed data cleared")
		return nil
	})
}

// Run creates users, posts with recipe details, and engagement between them.
func (s *Seeder) Run() (*Summary, error) {
	if err := Reference(s.db); err != nil {
		return nil, err
	}

	var tags []models.Tag
	if err := s.db.Find(&tags).Error; err != nil {
		return nil, err
	}
	var ingredients []models.Ingredient
	if err := s.db.Find(&ingredients).Error; err != nil {
		return nil, err
	}

	summary := &Summary{}
	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	posts := make([]*models.Post, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[i%len(users)]
		postType := models.PostTypeRecipe
		if i%4 == 3 {
			postType = models.PostTypeArticle
		}
		p := s.factory.BuildPost(author, postType, tags)
		if err := s.factory.CreatePost(p); err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		if postType == models.PostTypeRecipe {
			if err := s.factory.AddRecipeDetails(p, ingredients); err != nil {
				return nil, err
			}
		}
		posts = append(posts, p)
	}
	summary.Posts = len(posts)

	if err := s.seedEngagement(users, posts, summary); err != nil {
		return nil, err
	}
	if err := RecountPostCounters(s.db); err != nil {
		return nil, fmt.Errorf("recount counters: %w", err)
	}

	middleware.Logger.Info("database seeded",
		slog.Int("users", summary.Users),
		slog.Int("posts", summary.Posts),
		slog.Int("comments", summary.Comments),
		slog.Int("likes", summary.Likes),
		slog.Int("subscriptions", summary.Subscriptions),
	)
	return summary, nil
}

func (s *Seeder) seedEngagement(users []*models.User, posts []*models.Post, summary *Summary) error {
	faker := s.factory.faker

	for i, u := range users {
		// Every user follows the next one or two accounts in the ring.
		for step := 1; step <= 2 && step < len(users); step++ {
			target := users[(i+step)%len(users)]
			edge := models.Subscription{SubscriberID: u.ID, TargetID: target.ID}
			if err := s.db.Create(&edge).Error; err != nil {
				return fmt.Errorf("create subscription: %w", err)
			}
			summary.Subscriptions++
		}
	}

	for _, p := range posts {
		if !p.IsPublished() {
			continue
		}
		for _, u := range users {
			if u.ID == p.AuthorID || faker.Number(1, 3) != 1 {
				continue
			}
			if err := s.db.Create(&models.PostLike{UserID: u.ID, PostID: p.ID}).Error; err != nil {
				return fmt.Errorf("create like: %w", err)
			}
			summary.Likes++
		}

		var parent *models.Comment
		for c := faker.Number(0, 4); c > 0; c-- {
			author := users[faker.Number(0, len(users)-1)]
			reply := parent
			if faker.Bool() {
				reply = nil
			}
			comment, err := s.factory.CreateComment(p, author, reply)
			if err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			parent = comment
			summary.Comments++
		}

		views := faker.Number(0, 250)
		if err := s.db.Model(&models.Post{}).Where("id = ?", p.ID).Update("views_count", views).Error; err != nil {
			return err
		}
	}
	return nil
}

// RecountPostCounters sets likes_count and comments_count from their relations.
func RecountPostCounters(db *gorm.DB) error {
	return db.Exec(`
		UPDATE posts SET
			likes_count = (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id),
			comments_count = (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id)
	`).Error
}
