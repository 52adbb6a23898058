// Command inkctl is the operator CLI for an Inkwell installation: schema
// migration, seeding, account lifecycle and role management.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"inkwell/internal/bootstrap"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/lifecycle"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// loadConfig is replaced in tests.
var loadConfig = config.LoadConfig

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbose   bool
		logCloser io.Closer
	)

	root := &cobra.Command{
		Use:   "inkctl",
		Short: "Operate an Inkwell installation",
		Long: `inkctl runs maintenance tasks against the database and cache configured
by config.yml, .env and the environment, the same sources the server reads.

Lifecycle commands act with operator authority and publish the same cache
invalidation events as the admin panel, so running servers drop stale views.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logCloser = middleware.InitLogger(observability.LogOptions{Level: level})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				_ = logCloser.Close()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newSweepCmd(),
		newWithdrawCmd(),
		newRestoreCmd(),
		newRoleCmd("promote", "Grant the ADMIN role to a user", models.RoleAdmin),
		newRoleCmd("demote", "Revoke the ADMIN role from a user", models.RoleUser),
		newStatsCmd(),
	)
	return root
}

// runtime is the set of collaborators one command invocation needs.
type runtime struct {
	db        *gorm.DB
	rdb       *redis.Client
	users     repository.UserRepository
	lifecycle *lifecycle.Manager
	admin     *service.AdminService
}

func openRuntime(ctx context.Context, opts bootstrap.Options) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	// Without Redis there is no running server to notify.
	invalidator := cache.NewInvalidator(cache.NewStore(rdb), notifications.NewNotifier(rdb, nil))

	users := repository.NewUserRepository(db)
	return &runtime{
		db:        db,
		rdb:       rdb,
		users:     users,
		lifecycle: lifecycle.NewManager(users, invalidator, cfg.RetentionPeriod()),
		admin: service.NewAdminService(users, repository.NewPostRepository(db),
			repository.NewCommentRepository(db), invalidator),
	}, nil
}

func (r *runtime) Close() {
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if r.rdb != nil {
		_ = r.rdb.Close()
	}
}

func withRuntime(cmd *cobra.Command, opts bootstrap.Options, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := openRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

// resolveUser accepts a numeric ID or an email address.
func (r *runtime) resolveUser(ctx context.Context, ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseUint(ref, 10, 0); err == nil && id > 0 {
		return r.users.GetByID(ctx, uint(id))
	}
	if strings.Contains(ref, "@") {
		user, err := r.users.GetByEmail(ctx, strings.ToLower(ref))
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, models.NewNotFoundError("User", ref)
		}
		return user, nil
	}
	return nil, fmt.Errorf("%q is neither a user ID nor an email", ref)
}
