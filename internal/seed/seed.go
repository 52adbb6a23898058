package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"gorm.io/gorm"
)

// Options configuration for the seeder. MaxDays bounds how far back
// generated posts are dated; SkipBcrypt hashes the demo password at the
// minimum cost.
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	LikesPerPost    int
	MaxDays         int
	BatchSize       int
	SkipBcrypt      bool
	DryRun          bool
	Clean           bool
	RandSeed        int64
}

// Result counts what a seeding run created.
type Result struct {
	Users    int `json:"users"`
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
	Likes    int `json:"likes"`
}

// Seeder fills a database with reference data and fake content.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder for db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Reference applies the built-in categories and stop words.
func (s *Seeder) Reference(ctx context.Context) error {
	ref, err := BuiltinReference()
	if err != nil {
		return err
	}
	if s.opts.DryRun {
		middleware.Logger.Info("[dry-run] reference data",
			slog.Int("categories", len(ref.Categories)),
			slog.Int("stop_words", len(ref.StopWords)))
		return nil
	}
	return ApplyReference(ctx, repository.NewCategoryRepository(s.db), repository.NewStopWordRepository(s.db), ref)
}

// Run seeds reference data, then users, posts, comments and likes.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	log := middleware.Logger.With(slog.String("component", "seed"))
	log.Info("Starting database seeding",
		slog.Int("users", s.opts.NumUsers), slog.Int("posts", s.opts.NumPosts))

	if s.opts.Clean && !s.opts.DryRun {
		if err := ClearContent(s.db); err != nil {
			log.Warn("Could not clear existing data, continuing", slog.String("error", err.Error()))
		}
	}

	if err := s.Reference(ctx); err != nil {
		return nil, err
	}

	var categories []models.Category
	if s.opts.DryRun {
		ref, _ := BuiltinReference()
		for i, c := range ref.Categories {
			categories = append(categories, models.Category{ID: uint(i + 1), Name: c.Name, Slug: c.Slug})
		}
	} else if err := s.db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	if len(categories) == 0 {
		return nil, errors.New("no categories to file posts under")
	}

	result := &Result{}

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			log.Warn("Failed to create user", slog.String("error", err.Error()))
			continue
		}
		users = append(users, user)
	}
	result.Users = len(users)
	log.Info("Users created", slog.Int("count", result.Users))
	if len(users) == 0 {
		return result, nil
	}

	posts := make([]*models.Post, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		writer := users[s.factory.Intn(len(users))]
		category := &categories[s.factory.Intn(len(categories))]
		posts = append(posts, s.factory.BuildPost(writer, category))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	result.Posts = len(posts)
	log.Info("Posts created", slog.Int("count", result.Posts))

	for _, post := range posts {
		var roots []*models.Comment
		for i := 0; i < s.opts.CommentsPerPost; i++ {
			var parent *models.Comment
			// Roughly a third of comments reply to an earlier root.
			if len(roots) > 0 && s.factory.Intn(3) == 0 {
				parent = roots[s.factory.Intn(len(roots))]
			}
			comment, err := s.factory.CreateComment(users[s.factory.Intn(len(users))], post, parent)
			if err != nil {
				return nil, fmt.Errorf("failed to create comment: %w", err)
			}
			if parent == nil {
				roots = append(roots, comment)
			}
			result.Comments++
		}

		likes := s.opts.LikesPerPost
		if likes > len(users) {
			likes = len(users)
		}
		start := s.factory.Intn(len(users))
		for i := 0; i < likes; i++ {
			if err := s.factory.CreateLike(users[(start+i)%len(users)], post); err != nil {
				return nil, fmt.Errorf("failed to create like: %w", err)
			}
			result.Likes++
		}
	}

	log.Info("Database seeding completed",
		slog.Int("comments", result.Comments), slog.Int("likes", result.Likes))
	return result, nil
}

// ClearContent removes users and their content. Categories and stop words
// are reference data and stay.
func ClearContent(db *gorm.DB) error {
	middleware.Logger.Info("Clearing existing data")
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE post_likes, comments, posts, users RESTART IDENTITY CASCADE`).Error
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.PostLike{}, &models.Comment{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
