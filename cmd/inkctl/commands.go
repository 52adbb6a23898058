package main

import (
	"context"
	"encoding/json"
	"fmt"

	"inkwell/internal/bootstrap"
	"inkwell/internal/database"
	"inkwell/internal/lifecycle"
	"inkwell/internal/models"
	"inkwell/internal/seed"
	"inkwell/internal/session"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Applies the schema of every persistent model. The server migrates on start
outside production; production deployments run this command instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, bootstrap.Options{SkipRedis: true}, func(ctx context.Context, rt *runtime) error {
				if err := database.Migrate(rt.db.WithContext(ctx)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func newSeedCmd() *cobra.Command {
	opts := seed.Options{}
	var referenceOnly bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data and generate demo content",
		Long: `Upserts the built-in categories and stop words, then generates fake users,
posts, comments and likes. Every generated account uses the password
` + seed.DefaultPassword + `.

Example:
  inkctl seed --users 50 --posts 200 --comments 4 --clean`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, bootstrap.Options{SkipRedis: true}, func(ctx context.Context, rt *runtime) error {
				s := seed.NewSeeder(rt.db, opts)
				if referenceOnly {
					if err := s.Reference(ctx); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "reference data applied")
					return nil
				}
				result, err := s.Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded users=%d posts=%d comments=%d likes=%d\n",
					result.Users, result.Posts, result.Comments, result.Likes)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.NumUsers, "users", 20, "Number of users to create")
	f.IntVar(&opts.NumPosts, "posts", 100, "Number of posts to create")
	f.IntVar(&opts.CommentsPerPost, "comments", 3, "Comments per post")
	f.IntVar(&opts.LikesPerPost, "likes", 5, "Likes per post")
	f.IntVar(&opts.MaxDays, "max-days", 365, "Spread post dates over this many days")
	f.IntVar(&opts.BatchSize, "batch", 100, "Insert batch size")
	f.Int64Var(&opts.RandSeed, "rand-seed", 0, "Seed for reproducible output (0 picks one)")
	f.BoolVar(&opts.Clean, "clean", false, "Delete users and content first")
	f.BoolVar(&opts.SkipBcrypt, "fast", false, "Hash the demo password at minimum bcrypt cost")
	f.BoolVar(&opts.DryRun, "dry-run", false, "Generate without writing")
	f.BoolVar(&referenceOnly, "reference-only", false, "Only apply categories and stop words")
	return cmd
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Anonymize accounts withdrawn longer than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, bootstrap.Options{}, func(ctx context.Context, rt *runtime) error {
				result, err := lifecycle.NewSweeper(rt.lifecycle, 0).RunOnce(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "retention=%s scanned=%d anonymized=%d\n",
					rt.lifecycle.Retention(), result.Scanned, result.Anonymized)
				return nil
			})
		},
	}
}

func newWithdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <user-id|email>",
		Short: "Withdraw an account",
		Long: `Marks the account withdrawn. Its content is hidden at once and its personal
data is scrubbed by the next sweep after the retention period.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, bootstrap.Options{}, func(ctx context.Context, rt *runtime) error {
				user, err := rt.resolveUser(ctx, args[0])
				if err != nil {
					return err
				}
				if err := rt.lifecycle.Withdraw(ctx, session.Operator, user.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %d withdrawn\n", user.ID)
				return nil
			})
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <user-id|email>",
		Short: "Restore a withdrawn account that has not been anonymized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, bootstrap.Options{}, func(ctx context.Context, rt *runtime) error {
				user, err := rt.resolveUser(ctx, args[0])
				if err != nil {
					return err
				}
				if err := rt.lifecycle.Restore(ctx, session.Operator, user.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %d active\n", user.ID)
				return nil
			})
		},
	}
}

func newRoleCmd(use, short string, role models.Role) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user-id|email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, bootstrap.Options{}, func(ctx context.Context, rt *runtime) error {
				user, err := rt.resolveUser(ctx, args[0])
				if err != nil {
					return err
				}
				if user.Role == role {
					fmt.Fprintf(cmd.OutOrStdout(), "user %d is already %s\n", user.ID, role)
					return nil
				}
				if err := rt.admin.SetRole(ctx, session.Operator, user.ID, role); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %d is now %s\n", user.ID, role)
				return nil
			})
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print account and content counts as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, bootstrap.Options{SkipRedis: true}, func(ctx context.Context, rt *runtime) error {
				stats, err := rt.admin.Stats(ctx, session.Operator)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			})
		},
	}
}
