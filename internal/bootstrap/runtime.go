// Package bootstrap wires the process-wide runtime shared by the server and tooling commands.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bloh/internal/cache"
	"bloh/internal/config"
	"bloh/internal/database"
	"bloh/internal/middleware"
	"bloh/internal/models"
	"bloh/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedReference fills the tag and ingredient catalogs when they are empty.
	SeedReference bool
}

// InitRuntime connects to DB and Redis and optionally seeds reference data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// A nil client means Redis is unreachable; view counting degrades.
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedReference {
		if err := seed.Reference(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed reference data: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevRootAdmin makes user 1 an admin with the configured credentials.
// It only acts in development with DEV_BOOTSTRAP_ROOT enabled.
func EnsureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "bloh_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@bloh.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.First(&root, 1).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				ID:       1,
				Username: username,
				Email:    email,
				Password: string(hashedPassword),
				Role:     models.RoleAdmin,
				IsStaff:  true,
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		default:
			if err := tx.Model(&models.User{}).Where("id = ?", 1).
				Updates(map[string]any{"role": models.RoleAdmin, "is_staff": true}).Error; err != nil {
				return err
			}
		}

		// Explicit ID inserts leave the postgres sequence behind.
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec(`
				SELECT setval(
					pg_get_serial_sequence('users', 'id'),
					GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
					true
				)
			`).Error; err != nil {
				return fmt.Errorf("failed to reset users sequence: %w", err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	middleware.Logger.Info("development root admin ensured", slog.Uint64("user_id", 1), slog.String("email", email))
	return nil
}
