// Command seed fills a development database with demo data.
package main

import (
	"flag"
	"log"

	"bloh/internal/bootstrap"
	"bloh/internal/config"
	"bloh/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 80, "Number of posts to create")
	maxDays := flag.Int("days", 90, "Spread post dates over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Store the demo password unhashed")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedReference: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		NumUsers:   *numUsers,
		NumPosts:   *numPosts,
		MaxDays:    *maxDays,
		SkipBcrypt: *fast,
	})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		if err := bootstrap.EnsureDevRootAdmin(cfg, db); err != nil {
			log.Fatalf("Root admin bootstrap failed: %v", err)
		}
	}

	summary, err := s.Run()
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d comments, %d likes, %d subscriptions",
		summary.Users, summary.Posts, summary.Comments, summary.Likes, summary.Subscriptions)
	log.Printf("All demo users have the password: %s", seed.DemoPassword)
}
