package service

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/search"
	"inkwell/internal/session"
	"inkwell/internal/threads"
	"inkwell/internal/validation"
	"inkwell/internal/visibility"
)

// PostService serves listings, details and post mutations.
type PostService struct {
	posts       repository.PostRepository
	comments    repository.CommentRepository
	categories  repository.CategoryRepository
	stopWords   repository.StopWordRepository
	cache       *cache.Store
	invalidator Invalidator
}

// PostDetail is a post with its threaded comments.
type PostDetail struct {
	Post     visibility.PostView      `json:"post"`
	Comments []visibility.CommentView `json:"comments"`
}

type ListPostsInput struct {
	CategorySlug string
	Limit        int
	Offset       int
}

type CreatePostInput struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID uint   `json:"category_id"`
}

type UpdatePostInput struct {
	PostID     uint   `json:"-"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID uint   `json:"category_id"`
}

// LikeResult is the state after a like toggle.
type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	categories repository.CategoryRepository,
	stopWords repository.StopWordRepository,
	store *cache.Store,
	invalidator Invalidator,
) *PostService {
	if store == nil {
		store = cache.NewStore(nil)
	}
	return &PostService{
		posts:       posts,
		comments:    comments,
		categories:  categories,
		stopWords:   stopWords,
		cache:       store,
		invalidator: orNoop(invalidator),
	}
}

// List returns a page of posts, flagged ones rendered as placeholders. The
// anonymous default first page is served cache-aside.
func (s *PostService) List(ctx context.Context, sess session.Session, in ListPostsInput) (*Page[visibility.PostView], error) {
	limit, offset := clampPage(in.Limit, in.Offset)

	var filter repository.PostFilter
	if in.CategorySlug != "" {
		category, err := s.categories.GetBySlug(ctx, in.CategorySlug)
		if err != nil {
			return nil, err
		}
		filter.CategoryID = category.ID
	}

	load := func(dest *Page[visibility.PostView]) error {
		posts, total, err := s.posts.List(ctx, filter, limit, offset, sess.UserID)
		if err != nil {
			return err
		}
		*dest = Page[visibility.PostView]{Items: visibility.ViewPosts(posts), Total: total, Limit: limit, Offset: offset}
		return nil
	}

	var page Page[visibility.PostView]
	if !sess.Authenticated() && filter.CategoryID == 0 && offset == 0 && limit == DefaultPageSize {
		if err := s.cache.Aside(ctx, "posts_list", cache.PostListFirstPage, &page, cache.PostListTTL, func() error {
			return load(&page)
		}); err != nil {
			return nil, err
		}
		return &page, nil
	}
	if err := load(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Search matches visible posts against the stop-word filtered query.
func (s *PostService) Search(ctx context.Context, sess session.Session, query string, limit, offset int) ([]visibility.PostView, error) {
	limit, offset = clampPage(limit, offset)

	words, err := s.stopWords.All(ctx)
	if err != nil {
		return nil, err
	}
	tokens := search.Tokens(query, search.NewStopWords(words...))

	posts, err := s.posts.Search(ctx, tokens, limit, offset, sess.UserID)
	if err != nil {
		return nil, err
	}
	return visibility.ViewPosts(posts), nil
}

// Get returns the post detail with threaded comments. Anonymous reads are
// served cache-aside.
func (s *PostService) Get(ctx context.Context, sess session.Session, id uint) (*PostDetail, error) {
	load := func(dest *PostDetail) error {
		post, err := s.posts.GetByID(ctx, id, sess.UserID)
		if err != nil {
			return err
		}
		comments, err := s.comments.ListByPost(ctx, id)
		if err != nil {
			return err
		}
		*dest = PostDetail{
			Post:     visibility.ViewPost(post, true),
			Comments: visibility.ViewThreads(threads.Build(comments)),
		}
		return nil
	}

	var detail PostDetail
	if !sess.Authenticated() {
		if err := s.cache.Aside(ctx, "post", cache.PostKey(id), &detail, cache.PostTTL, func() error {
			return load(&detail)
		}); err != nil {
			return nil, err
		}
		return &detail, nil
	}
	if err := load(&detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *PostService) Create(ctx context.Context, sess session.Session, in CreatePostInput) (*visibility.PostView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	title, content, err := s.validatePost(ctx, in.Title, in.Content, in.CategoryID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:      title,
		Content:    content,
		WriterID:   sess.UserID,
		CategoryID: in.CategoryID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, cache.PostTargets(post.ID, sess.UserID)...)

	created, err := s.posts.GetByID(ctx, post.ID, sess.UserID)
	if err != nil {
		return nil, err
	}
	view := visibility.ViewPost(created, true)
	return &view, nil
}

// Update edits a post. Only its writer may edit it.
func (s *PostService) Update(ctx context.Context, sess session.Session, in UpdatePostInput) (*visibility.PostView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, in.PostID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !sess.Owns(post.WriterID) {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}
	if post.IsDeleted {
		return nil, models.NewConflictError("Post has been deleted")
	}

	title, content, err := s.validatePost(ctx, in.Title, in.Content, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Update(ctx, post.ID, title, content, in.CategoryID); err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, cache.PostTargets(post.ID, post.WriterID)...)

	updated, err := s.posts.GetByID(ctx, post.ID, sess.UserID)
	if err != nil {
		return nil, err
	}
	view := visibility.ViewPost(updated, true)
	return &view, nil
}

// Delete flags a post. The writer or an admin may delete it.
func (s *PostService) Delete(ctx context.Context, sess session.Session, id uint) error {
	return s.setDeleted(ctx, sess, id, true)
}

// Restore clears a post's flag. Admin only.
func (s *PostService) Restore(ctx context.Context, sess session.Session, id uint) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	return s.setDeleted(ctx, sess, id, false)
}

func (s *PostService) setDeleted(ctx context.Context, sess session.Session, id uint, deleted bool) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	post, err := s.posts.GetByID(ctx, id, 0)
	if err != nil {
		return err
	}
	if !sess.CanActOn(post.WriterID) {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	if err := s.posts.SetDeleted(ctx, id, deleted); err != nil {
		return err
	}
	s.invalidator.Invalidate(ctx, cache.PostTargets(id, post.WriterID)...)
	return nil
}

// ToggleLike flips the caller's like on a visible post.
func (s *PostService) ToggleLike(ctx context.Context, sess session.Session, id uint) (*LikeResult, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	if visibility.Resolve(post.Writer.IsDeleted(), post.IsDeleted).Redacted() {
		return nil, models.NewConflictError("This post can no longer be liked")
	}

	liked, count, err := s.posts.ToggleLike(ctx, sess.UserID, id)
	if err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, cache.PostTargets(id, post.WriterID)...)
	return &LikeResult{Liked: liked, LikeCount: count}, nil
}

// AdminList lists every post, flagged ones included, with visibility applied.
func (s *PostService) AdminList(ctx context.Context, sess session.Session, limit, offset int) (*Page[visibility.PostView], error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	posts, total, err := s.posts.List(ctx, repository.PostFilter{}, limit, offset, 0)
	if err != nil {
		return nil, err
	}
	return &Page[visibility.PostView]{Items: visibility.ViewPosts(posts), Total: total, Limit: limit, Offset: offset}, nil
}

func (s *PostService) validatePost(ctx context.Context, title, content string, categoryID uint) (string, string, error) {
	title = strings.TrimSpace(title)
	content = validation.SanitizeContent(content)

	fields := map[string]string{}
	if err := validation.ValidateTitle(title); err != nil {
		fields["title"] = err.Error()
	}
	if err := validation.ValidateBody(content, validation.MaxPostLength); err != nil {
		fields["content"] = err.Error()
	}
	if categoryID == 0 {
		fields["category_id"] = "category is required"
	} else if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return "", "", err
		}
		fields["category_id"] = "unknown category"
	}
	if len(fields) > 0 {
		return "", "", models.NewFieldErrors(fields)
	}
	return title, content, nil
}
