package service

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/session"
)

// AdminService backs the admin panel's user management and dashboard.
type AdminService struct {
	users       repository.UserRepository
	posts       repository.PostRepository
	comments    repository.CommentRepository
	invalidator Invalidator
}

// Stats is the admin dashboard summary.
type Stats struct {
	Users    map[models.AccountState]int64 `json:"users"`
	Posts    repository.ContentCounts      `json:"posts"`
	Comments repository.ContentCounts      `json:"comments"`
}

func NewAdminService(users repository.UserRepository, posts repository.PostRepository, comments repository.CommentRepository, invalidator Invalidator) *AdminService {
	return &AdminService{users: users, posts: posts, comments: comments, invalidator: orNoop(invalidator)}
}

func (s *AdminService) ListUsers(ctx context.Context, sess session.Session, filter repository.UserListFilter, limit, offset int) (*Page[models.User], error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if filter.State != "" && filter.State != models.AccountActive &&
		filter.State != models.AccountWithdrawn && filter.State != models.AccountAnonymized {
		return nil, models.NewFieldErrors(map[string]string{"state": "unknown account state"})
	}
	limit, offset = clampPage(limit, offset)
	users, total, err := s.users.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	return &Page[models.User]{Items: users, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *AdminService) Stats(ctx context.Context, sess session.Session) (*Stats, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	users, err := s.users.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.Counts(ctx)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Users: users, Posts: posts, Comments: comments}, nil
}

// SetRole grants or revokes the admin role. Admins cannot demote themselves.
func (s *AdminService) SetRole(ctx context.Context, sess session.Session, userID uint, role models.Role) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if sess.Owns(userID) && role != models.RoleAdmin {
		return models.NewConflictError("Admins cannot demote themselves")
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	s.invalidator.Invalidate(ctx, cache.Target{Kind: cache.TargetUser, ID: userID})
	return nil
}
