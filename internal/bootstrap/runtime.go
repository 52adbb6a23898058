// Package bootstrap wires the database, cache and first-boot data shared by
// the server and the admin CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/seed"
	"inkwell/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RootAdminName is the display name given to a freshly created root admin.
const RootAdminName = "Administrator"

// Options control runtime initialization behavior.
type Options struct {
	SeedReference bool
	SkipRedis     bool
}

// InitRuntime connects to DB and Redis, ensures the configured root admin
// and optionally applies the built-in reference data. The Redis client is
// nil when Redis is unreachable or skipped.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	var rdb *redis.Client
	if !opts.SkipRedis {
		rdb = cache.Connect(cfg.RedisURL)
	}

	if err := EnsureRootAdmin(ctx, cfg, repository.NewUserRepository(db)); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap root admin: %w", err)
	}

	if opts.SeedReference {
		if err := seed.NewSeeder(db, seed.Options{}).Reference(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to seed reference data: %w", err)
		}
	}

	return db, rdb, nil
}

// EnsureRootAdmin creates the account named by ROOT_ADMIN_EMAIL, or promotes
// it when it already exists. An existing password is never overwritten. It
// does nothing when either setting is empty.
func EnsureRootAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository) error {
	if cfg == nil {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(cfg.RootAdminEmail))
	if email == "" || cfg.RootAdminPassword == "" {
		return nil
	}
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("ROOT_ADMIN_EMAIL: %w", err)
	}

	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.State != models.AccountActive {
			return fmt.Errorf("root admin %s is %s", email, existing.State)
		}
		if existing.IsAdmin() {
			return nil
		}
		if err := users.UpdateRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return err
		}
		middleware.Logger.Info("promoted root admin", slog.String("email", email), slog.Uint64("user_id", uint64(existing.ID)))
		return nil
	}

	if err := validation.ValidatePassword(cfg.RootAdminPassword); err != nil {
		return fmt.Errorf("ROOT_ADMIN_PASSWORD: %w", err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.RootAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}
	passwd := string(hashed)
	root := &models.User{
		Name:   RootAdminName,
		Email:  email,
		Passwd: &passwd,
		Role:   models.RoleAdmin,
		State:  models.AccountActive,
	}
	if err := users.Create(ctx, root); err != nil {
		return err
	}
	middleware.Logger.Info("created root admin", slog.String("email", email), slog.Uint64("user_id", uint64(root.ID)))
	return nil
}
