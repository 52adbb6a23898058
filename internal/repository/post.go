package repository

import (
	"context"
	"time"

	"inkwell/internal/activity"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/search"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows a post listing. Zero values mean "no restriction".
type PostFilter struct {
	CategoryID uint
	WriterID   uint
	// VisibleOnly drops flagged posts and posts of withdrawn writers.
	VisibleOnly bool
}

// ContentCounts summarizes a table for the admin dashboard.
type ContentCounts struct {
	Total   int64 `json:"total"`
	Deleted int64 `json:"deleted"`
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	List(ctx context.Context, filter PostFilter, limit, offset int, viewerID uint) ([]*models.Post, int64, error)
	Search(ctx context.Context, tokens []string, limit, offset int, viewerID uint) ([]*models.Post, error)
	Update(ctx context.Context, id uint, title, content string, categoryID uint) error
	SetDeleted(ctx context.Context, id uint, deleted bool) error
	ToggleLike(ctx context.Context, userID, postID uint) (bool, int64, error)
	Stamps(ctx context.Context, writerID uint, since time.Time) ([]activity.Stamp, error)
	Counts(ctx context.Context) (ContentCounts, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	var post models.Post
	err := r.withDetails(r.db.WithContext(ctx), viewerID).
		Preload("Writer").
		Preload("Category").
		First(&post, id).Error
	if err != nil {
		return nil, lookupError(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter, limit, offset int, viewerID uint) ([]*models.Post, int64, error) {
	defer observability.TrackQuery("list", "posts")()

	base := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(filterScope(filter))

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []*models.Post
	err := r.withDetails(base.Session(&gorm.Session{}), viewerID).
		Preload("Writer").
		Preload("Category").
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}

// Search returns visible posts containing every token in the title or body.
// The no-match token short-circuits without touching the database.
func (r *postRepository) Search(ctx context.Context, tokens []string, limit, offset int, viewerID uint) ([]*models.Post, error) {
	if len(tokens) == 0 || search.IsNoMatch(tokens) {
		return []*models.Post{}, nil
	}
	defer observability.TrackQuery("search", "posts")()

	q := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(filterScope(PostFilter{VisibleOnly: true}))
	for _, tok := range tokens {
		like := search.LikePattern(tok)
		q = q.Where(`(LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\')`, like, like)
	}

	posts := []*models.Post{}
	err := r.withDetails(q, viewerID).
		Preload("Writer").
		Preload("Category").
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Update(ctx context.Context, id uint, title, content string, categoryID uint) error {
	defer observability.TrackQuery("update", "posts")()
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":       title,
			"content":     content,
			"category_id": categoryID,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) SetDeleted(ctx context.Context, id uint, deleted bool) error {
	defer observability.TrackQuery("set_deleted", "posts")()
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).UpdateColumn("is_deleted", deleted)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// ToggleLike flips the caller's like and returns the new state with the
// post's like count. Inserts ignore an existing row so concurrent likes
// converge on one.
func (r *postRepository) ToggleLike(ctx context.Context, userID, postID uint) (bool, int64, error) {
	defer observability.TrackQuery("toggle_like", "post_likes")()

	var liked bool
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			like := models.PostLike{UserID: userID, PostID: postID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
			liked = true
		}
		return tx.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&count).Error
	})
	if err != nil {
		return false, 0, models.NewInternalError(err)
	}
	return liked, count, nil
}

// Stamps returns the timestamps of the writer's non-deleted posts touched
// since the given instant.
func (r *postRepository) Stamps(ctx context.Context, writerID uint, since time.Time) ([]activity.Stamp, error) {
	defer observability.TrackQuery("stamps", "posts")()
	stamps := []activity.Stamp{}
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Select("created_at, updated_at").
		Where("writer_id = ? AND is_deleted = ? AND (created_at >= ? OR updated_at >= ?)", writerID, false, since.UTC(), since.UTC()).
		Order("created_at ASC").
		Scan(&stamps).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return stamps, nil
}

func (r *postRepository) Counts(ctx context.Context) (ContentCounts, error) {
	return countContent(ctx, r.db, &models.Post{})
}

// withDetails adds subqueries to fetch counts and liked status in a single query.
func (r *postRepository) withDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.is_deleted = ?) AS comment_count, " +
		"(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) AS like_count"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM post_likes WHERE post_likes.post_id = posts.id AND post_likes.user_id = ?) AS liked", false, viewerID)
	}
	return db.Select(selectQuery+", false AS liked", false)
}

func filterScope(filter PostFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.CategoryID != 0 {
			db = db.Where("posts.category_id = ?", filter.CategoryID)
		}
		if filter.WriterID != 0 {
			db = db.Where("posts.writer_id = ?", filter.WriterID)
		}
		if filter.VisibleOnly {
			db = db.Where("posts.is_deleted = ?", false).
				Where("posts.writer_id IN (?)", db.Session(&gorm.Session{NewDB: true}).
					Model(&models.User{}).Select("id").Where("state = ?", models.AccountActive))
		}
		return db
	}
}

// countContent counts all rows of model and the flagged ones.
func countContent(ctx context.Context, db *gorm.DB, model interface{}) (ContentCounts, error) {
	var counts ContentCounts
	if err := db.WithContext(ctx).Model(model).Count(&counts.Total).Error; err != nil {
		return counts, models.NewInternalError(err)
	}
	if err := db.WithContext(ctx).Model(model).Where("is_deleted = ?", true).Count(&counts.Deleted).Error; err != nil {
		return counts, models.NewInternalError(err)
	}
	return counts, nil
}
