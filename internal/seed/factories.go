// Package seed provides helpers to create reference and demo data for the
// application database. The fake-data helpers are intended for development
// and testing only.
package seed

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every generated account.
const DefaultPassword = "Inkwell!Demo2024"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	hash  *string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB. A zero
// opts.RandSeed picks a time-based seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{db: db, opts: opts, faker: gofakeit.New(seed), nextID: 1000}
}

func (f *Factory) passwordHash() (*string, error) {
	if f.hash != nil {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	value := string(hashed)
	f.hash = &value
	return f.hash, nil
}

// BuildUser constructs a sample active `models.User` without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	handle := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, f.faker.Number(100, 999)))
	image := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID())

	user := &models.User{
		Name:  first + " " + last,
		Email: handle + "@example.com",
		Image: &image,
		Role:  models.RoleUser,
		State: models.AccountActive,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if user.Passwd == nil {
		hash, err := f.passwordHash()
		if err != nil {
			return nil, err
		}
		user.Passwd = hash
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		middleware.Logger.Debug("[dry-run] CreateUser", slog.String("email", user.Email))
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post for the given writer and category, with a
// creation time spread over the last MaxDays days. It is not persisted.
func (f *Factory) BuildPost(writer *models.User, category *models.Category, overrides ...func(*models.Post)) *models.Post {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), ".")
	post := &models.Post{
		Title:      title,
		Content:    f.faker.Paragraph(f.faker.Number(1, 4), f.faker.Number(2, 6), 12, "\n\n"),
		WriterID:   writer.ID,
		CategoryID: category.ID,
		CreatedAt:  f.pastTime(),
	}
	post.UpdatedAt = post.CreatedAt

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		middleware.Logger.Debug("[dry-run] CreatePostsBatch", slog.Int("posts", len(posts)))
		return nil
	}
	batch := f.opts.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return f.db.CreateInBatches(&posts, batch).Error
}

// CreatePost constructs and persists a sample `models.Post`.
func (f *Factory) CreatePost(writer *models.User, category *models.Category, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(writer, category, overrides...)
	if err := f.CreatePostsBatch([]*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment constructs and persists a sample `models.Comment` on the
// provided post authored by the provided user. A non-nil parent makes it a
// reply.
func (f *Factory) CreateComment(writer *models.User, post *models.Post, parent *models.Comment, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Content:  f.faker.Sentence(f.faker.Number(4, 16)),
		WriterID: writer.ID,
		PostID:   post.ID,
	}
	if parent != nil {
		comment.ParentID = &parent.ID
	}
	created := post.CreatedAt.Add(time.Duration(f.faker.Number(1, 72)) * time.Hour)
	if now := time.Now().UTC(); created.After(now) {
		created = now
	}
	comment.CreatedAt = created
	comment.UpdatedAt = created

	for _, override := range overrides {
		override(comment)
	}

	if f.opts.DryRun {
		f.nextID++
		comment.ID = f.nextID
		return comment, nil
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from `user` on `post`. Liking twice is a no-op.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	if f.opts.DryRun {
		return nil
	}
	like := &models.PostLike{UserID: user.ID, PostID: post.ID}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error
}

// Intn returns a pseudo-random number in [0, n).
func (f *Factory) Intn(n int) int {
	if n <= 1 {
		return 0
	}
	return f.faker.Number(0, n-1)
}

func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays-1))*24*time.Hour +
		time.Duration(f.faker.Number(0, 23))*time.Hour +
		time.Duration(f.faker.Number(0, 59))*time.Minute
	return time.Now().UTC().Add(-back)
}
