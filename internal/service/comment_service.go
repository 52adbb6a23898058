package service

import (
	"context"
	"errors"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/session"
	"inkwell/internal/validation"
	"inkwell/internal/visibility"
)

type CommentService struct {
	comments    repository.CommentRepository
	posts       repository.PostRepository
	invalidator Invalidator
}

type CreateCommentInput struct {
	PostID   uint   `json:"-"`
	ParentID *uint  `json:"parent_id"`
	Content  string `json:"content"`
}

type UpdateCommentInput struct {
	PostID    uint   `json:"-"`
	CommentID uint   `json:"-"`
	Content   string `json:"content"`
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	invalidator Invalidator,
) *CommentService {
	return &CommentService{
		comments:    comments,
		posts:       posts,
		invalidator: orNoop(invalidator),
	}
}

// Create adds a comment to a visible post. A parent, when given, must be a
// top-level comment of the same post.
func (s *CommentService) Create(ctx context.Context, sess session.Session, in CreateCommentInput) (*visibility.CommentView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	post, err := s.posts.GetByID(ctx, in.PostID, 0)
	if err != nil {
		return nil, err
	}
	if visibility.Resolve(post.Writer.IsDeleted(), post.IsDeleted).Redacted() {
		return nil, models.NewConflictError("This post no longer accepts comments")
	}

	content := validation.SanitizeContent(in.Content)
	fields := map[string]string{}
	if err := validation.ValidateBody(content, validation.MaxCommentLength); err != nil {
		fields["content"] = err.Error()
	}
	if in.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *in.ParentID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			fields["parent_id"] = "parent comment does not exist"
		case err != nil:
			return nil, err
		case parent.PostID != in.PostID:
			fields["parent_id"] = "parent comment belongs to another post"
		case parent.ParentID != nil:
			fields["parent_id"] = "replies can only answer a top-level comment"
		}
	}
	if len(fields) > 0 {
		return nil, models.NewFieldErrors(fields)
	}

	comment := &models.Comment{
		Content:  content,
		WriterID: sess.UserID,
		PostID:   in.PostID,
		ParentID: in.ParentID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.invalidator.Invalidate(ctx, cache.PostTargets(post.ID, post.WriterID)...)
	return s.view(ctx, comment.ID)
}

// Update edits a comment. Only its writer may edit it.
func (s *CommentService) Update(ctx context.Context, sess session.Session, in UpdateCommentInput) (*visibility.CommentView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	comment, err := s.lookup(ctx, in.PostID, in.CommentID)
	if err != nil {
		return nil, err
	}
	if !sess.Owns(comment.WriterID) {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}
	if comment.IsDeleted {
		return nil, models.NewConflictError("Comment has been deleted")
	}

	content := validation.SanitizeContent(in.Content)
	if err := validation.ValidateBody(content, validation.MaxCommentLength); err != nil {
		return nil, models.NewFieldErrors(map[string]string{"content": err.Error()})
	}
	if err := s.comments.Update(ctx, comment.ID, content); err != nil {
		return nil, err
	}
	s.invalidatePost(ctx, comment.PostID)
	return s.view(ctx, comment.ID)
}

// Delete flags a comment. The writer or an admin may delete it.
func (s *CommentService) Delete(ctx context.Context, sess session.Session, postID, commentID uint) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	comment, err := s.lookup(ctx, postID, commentID)
	if err != nil {
		return err
	}
	if !sess.CanActOn(comment.WriterID) {
		return models.NewForbiddenError("You can only delete your own comments")
	}
	if err := s.comments.SetDeleted(ctx, comment.ID, true); err != nil {
		return err
	}
	s.invalidatePost(ctx, comment.PostID)
	return nil
}

// Restore clears a comment's flag. Admin only.
func (s *CommentService) Restore(ctx context.Context, sess session.Session, commentID uint) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if err := s.comments.SetDeleted(ctx, comment.ID, false); err != nil {
		return err
	}
	s.invalidatePost(ctx, comment.PostID)
	return nil
}

// lookup loads a comment and checks it belongs to postID when one is given.
func (s *CommentService) lookup(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if postID != 0 && comment.PostID != postID {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	return comment, nil
}

func (s *CommentService) view(ctx context.Context, id uint) (*visibility.CommentView, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := visibility.ViewComment(comment)
	return &v, nil
}

func (s *CommentService) invalidatePost(ctx context.Context, postID uint) {
	post, err := s.posts.GetByID(ctx, postID, 0)
	if err != nil {
		s.invalidator.Invalidate(ctx, cache.Target{Kind: cache.TargetPost, ID: postID}, cache.Target{Kind: cache.TargetPostList})
		return
	}
	s.invalidator.Invalidate(ctx, cache.PostTargets(post.ID, post.WriterID)...)
}
