package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/activity"
	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/session"
	"inkwell/internal/validation"
	"inkwell/internal/visibility"
)

// MaxActivitySpan bounds the heatmap window in days.
const MaxActivitySpan = 730

type UserService struct {
	users       repository.UserRepository
	posts       repository.PostRepository
	cache       *cache.Store
	invalidator Invalidator
	now         func() time.Time
}

type UpdateProfileInput struct {
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

func NewUserService(users repository.UserRepository, posts repository.PostRepository, store *cache.Store, invalidator Invalidator) *UserService {
	if store == nil {
		store = cache.NewStore(nil)
	}
	return &UserService{
		users:       users,
		posts:       posts,
		cache:       store,
		invalidator: orNoop(invalidator),
		now:         time.Now,
	}
}

// Profile returns the public profile, with placeholders once withdrawn.
func (s *UserService) Profile(ctx context.Context, id uint) (*visibility.ProfileView, error) {
	var view visibility.ProfileView
	err := s.cache.Aside(ctx, "user", cache.UserKey(id), &view, cache.UserTTL, func() error {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		view = visibility.ViewProfile(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Posts lists a user's posts, flagged ones as placeholders.
func (s *UserService) Posts(ctx context.Context, sess session.Session, userID uint, limit, offset int) (*Page[visibility.PostView], error) {
	limit, offset = clampPage(limit, offset)
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	var page Page[visibility.PostView]
	load := func() error {
		posts, total, err := s.posts.List(ctx, repository.PostFilter{WriterID: userID}, limit, offset, sess.UserID)
		if err != nil {
			return err
		}
		page = Page[visibility.PostView]{Items: visibility.ViewPosts(posts), Total: total, Limit: limit, Offset: offset}
		return nil
	}

	if !sess.Authenticated() && offset == 0 && limit == DefaultPageSize {
		if err := s.cache.Aside(ctx, "user_posts", cache.UserPostsKey(userID), &page, cache.PostListTTL, load); err != nil {
			return nil, err
		}
		return &page, nil
	}
	if err := load(); err != nil {
		return nil, err
	}
	return &page, nil
}

// Activity builds the heatmap over the user's non-deleted posts for the
// trailing span days. A withdrawn user's calendar is empty.
func (s *UserService) Activity(ctx context.Context, userID uint, span int) (*activity.Calendar, error) {
	if span <= 0 {
		span = activity.DefaultSpan
	}
	if span > MaxActivitySpan {
		span = MaxActivitySpan
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	days := map[string]activity.Day{}
	if !user.IsDeleted() {
		stamps, err := s.posts.Stamps(ctx, userID, now.AddDate(0, 0, -(span + 1)))
		if err != nil {
			return nil, err
		}
		days = activity.Aggregate(stamps)
	}
	cal := activity.BuildCalendar(days, now, span)
	return &cal, nil
}

// UpdateProfile changes the caller's own display name and avatar.
func (s *UserService) UpdateProfile(ctx context.Context, sess session.Session, in UpdateProfileInput) (*models.User, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateDisplayName(name); err != nil {
		return nil, models.NewFieldErrors(map[string]string{"name": err.Error()})
	}
	if err := s.users.UpdateProfile(ctx, sess.UserID, name, in.Image); err != nil {
		return nil, err
	}
	postIDs, err := s.users.ContentPostIDs(ctx, sess.UserID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "could not list posts to invalidate", slog.String("error", err.Error()))
	}
	s.invalidator.Invalidate(ctx, cache.UserTargets(sess.UserID, postIDs...)...)
	return s.users.GetByID(ctx, sess.UserID)
}
