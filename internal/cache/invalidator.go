package cache

import (
	"context"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"
)

// TargetKind names a family of cached views.
type TargetKind string

const (
	TargetPostList  TargetKind = "posts_list"
	TargetPost      TargetKind = "post"
	TargetUser      TargetKind = "user"
	TargetUserPosts TargetKind = "user_posts"
)

// Target is one cached view that a mutation made stale.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   uint       `json:"id,omitempty"`
}

// Keys returns the Redis keys backing the target.
func (t Target) Keys() []string {
	switch t.Kind {
	case TargetPostList:
		return []string{PostListFirstPage, CategoriesKey}
	case TargetPost:
		return []string{PostKey(t.ID)}
	case TargetUser:
		return []string{UserKey(t.ID)}
	case TargetUserPosts:
		return []string{UserPostsKey(t.ID)}
	default:
		return nil
	}
}

// Event is the payload published to realtime listeners.
type Event struct {
	Targets []Target `json:"targets"`
}

// UserTargets covers everything that renders a user's identity: the post
// list, the profile, the user's own posts and the detail of every post in
// postIDs.
func UserTargets(userID uint, postIDs ...uint) []Target {
	targets := []Target{
		{Kind: TargetPostList},
		{Kind: TargetUser, ID: userID},
		{Kind: TargetUserPosts, ID: userID},
	}
	for _, id := range postIDs {
		targets = append(targets, Target{Kind: TargetPost, ID: id})
	}
	return targets
}

// PostTargets covers a post's detail and the listings that include it.
func PostTargets(postID, writerID uint) []Target {
	return []Target{
		{Kind: TargetPostList},
		{Kind: TargetPost, ID: postID},
		{Kind: TargetUserPosts, ID: writerID},
	}
}

// Publisher delivers invalidation events to realtime listeners.
type Publisher interface {
	PublishInvalidation(ctx context.Context, ev Event) error
}

// Invalidator drops cached entries and announces the change.
type Invalidator struct {
	store     *Store
	publisher Publisher
}

// NewInvalidator creates an Invalidator; publisher may be nil.
func NewInvalidator(store *Store, publisher Publisher) *Invalidator {
	return &Invalidator{store: store, publisher: publisher}
}

// Invalidate is best-effort: failures are logged and never surface to the
// mutation that triggered them.
func (i *Invalidator) Invalidate(ctx context.Context, targets ...Target) {
	if len(targets) == 0 {
		return
	}

	var keys []string
	for _, t := range targets {
		keys = append(keys, t.Keys()...)
		observability.InvalidationsPublished.WithLabelValues(string(t.Kind)).Inc()
	}
	if err := i.store.Delete(ctx, keys...); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.Any("keys", keys), slog.String("error", err.Error()))
	}

	if i.publisher == nil {
		return
	}
	if err := i.publisher.PublishInvalidation(ctx, Event{Targets: targets}); err != nil {
		middleware.Logger.WarnContext(ctx, "invalidation publish failed", slog.String("error", err.Error()))
	}
}
