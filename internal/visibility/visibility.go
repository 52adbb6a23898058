// Package visibility decides what parts of a post or comment may be shown
// and builds the redacted views every surface serializes.
package visibility

import (
	"time"

	"inkwell/internal/models"
	"inkwell/internal/threads"
)

// Exposure says how a field group is rendered.
type Exposure int

const (
	// Shown renders the stored value.
	Shown Exposure = iota
	// Placeholder renders a fixed substitute text.
	Placeholder
	// Hidden renders nothing at all.
	Hidden
)

// Decision is the outcome for one record.
type Decision struct {
	Content Exposure
	Author  Exposure
}

// Resolve applies the decision table. A withdrawn writer outranks the
// record's own flag.
func Resolve(writerDeleted, recordDeleted bool) Decision {
	switch {
	case writerDeleted && recordDeleted:
		return Decision{Content: Hidden, Author: Hidden}
	case writerDeleted:
		return Decision{Content: Placeholder, Author: Placeholder}
	case recordDeleted:
		return Decision{Content: Placeholder, Author: Shown}
	default:
		return Decision{Content: Shown, Author: Shown}
	}
}

// Redacted reports whether the stored content is withheld.
func (d Decision) Redacted() bool {
	return d.Content != Shown
}

const (
	DeletedPostTitle     = "Deleted post"
	DeletedPostContent   = "This post has been deleted."
	WithdrawnPostTitle   = "Unavailable post"
	WithdrawnPostContent = "This post belongs to a withdrawn account."
	DeletedCommentText   = "This comment has been deleted."
	WithdrawnCommentText = "This comment belongs to a withdrawn account."
	WithdrawnAuthorName  = models.AnonymizedName
)

// AuthorView is the public identity attached to a post or comment.
type AuthorView struct {
	ID        uint    `json:"id,omitempty"`
	Name      string  `json:"name"`
	Image     *string `json:"image,omitempty"`
	Withdrawn bool    `json:"withdrawn"`
}

// ViewAuthor renders u for display next to content.
func ViewAuthor(u *models.User) AuthorView {
	if u == nil || u.IsDeleted() {
		return AuthorView{Name: WithdrawnAuthorName, Withdrawn: true}
	}
	return AuthorView{ID: u.ID, Name: u.Name, Image: u.Image}
}

func authorFor(u *models.User, e Exposure) *AuthorView {
	switch e {
	case Shown:
		v := ViewAuthor(u)
		return &v
	case Placeholder:
		return &AuthorView{Name: WithdrawnAuthorName, Withdrawn: true}
	default:
		return nil
	}
}

// CategoryRef is the category summary embedded in post views.
type CategoryRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Icon string `json:"icon,omitempty"`
}

// PostView is the serialized form of a post.
type PostView struct {
	ID           uint         `json:"id"`
	Title        string       `json:"title"`
	Content      string       `json:"content,omitempty"`
	Category     *CategoryRef `json:"category,omitempty"`
	Author       *AuthorView  `json:"author"`
	Deleted      bool         `json:"deleted"`
	Redacted     bool         `json:"redacted"`
	LikeCount    int64        `json:"like_count"`
	CommentCount int64        `json:"comment_count"`
	Liked        bool         `json:"liked"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ViewPost renders p. p.Writer must be loaded. Listing views pass
// withContent=false to omit bodies.
func ViewPost(p *models.Post, withContent bool) PostView {
	d := Resolve(p.Writer.IsDeleted(), p.IsDeleted)
	v := PostView{
		ID:           p.ID,
		Author:       authorFor(&p.Writer, d.Author),
		Deleted:      p.IsDeleted,
		Redacted:     d.Redacted(),
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		Liked:        p.Liked,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.Category.ID != 0 {
		v.Category = &CategoryRef{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug, Icon: p.Category.Icon}
	}

	switch d.Content {
	case Shown:
		v.Title = p.Title
		if withContent {
			v.Content = p.Content
		}
	case Placeholder:
		if p.Writer.IsDeleted() {
			v.Title, v.Content = WithdrawnPostTitle, WithdrawnPostContent
		} else {
			v.Title, v.Content = DeletedPostTitle, DeletedPostContent
		}
		if !withContent {
			v.Content = ""
		}
	}
	return v
}

// ViewPosts renders a listing.
func ViewPosts(posts []*models.Post) []PostView {
	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		out = append(out, ViewPost(p, false))
	}
	return out
}

// CommentView is the serialized form of a comment.
type CommentView struct {
	ID        uint          `json:"id"`
	PostID    uint          `json:"post_id"`
	ParentID  *uint         `json:"parent_id,omitempty"`
	Content   string        `json:"content"`
	Author    *AuthorView   `json:"author"`
	Deleted   bool          `json:"deleted"`
	Redacted  bool          `json:"redacted"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Replies   []CommentView `json:"replies,omitempty"`
}

// ViewComment renders c. c.Writer must be loaded.
func ViewComment(c *models.Comment) CommentView {
	d := Resolve(c.Writer.IsDeleted(), c.IsDeleted)
	v := CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		ParentID:  c.ParentID,
		Author:    authorFor(&c.Writer, d.Author),
		Deleted:   c.IsDeleted,
		Redacted:  d.Redacted(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	switch d.Content {
	case Shown:
		v.Content = c.Content
	case Placeholder:
		if c.Writer.IsDeleted() {
			v.Content = WithdrawnCommentText
		} else {
			v.Content = DeletedCommentText
		}
	}
	return v
}

// ViewThreads renders threads with their replies nested.
func ViewThreads(ts []threads.Thread) []CommentView {
	out := make([]CommentView, 0, len(ts))
	for _, t := range ts {
		root := ViewComment(t.Root)
		for _, r := range t.Replies {
			root.Replies = append(root.Replies, ViewComment(r))
		}
		out = append(out, root)
	}
	return out
}

// ProfileView is the public profile of an account.
type ProfileView struct {
	ID        uint        `json:"id"`
	Name      string      `json:"name"`
	Image     *string     `json:"image,omitempty"`
	Role      models.Role `json:"role,omitempty"`
	Withdrawn bool        `json:"withdrawn"`
	JoinedAt  *time.Time  `json:"joined_at,omitempty"`
}

// ViewProfile renders u's profile page header.
func ViewProfile(u *models.User) ProfileView {
	if u.IsDeleted() {
		return ProfileView{ID: u.ID, Name: WithdrawnAuthorName, Withdrawn: true}
	}
	joined := u.CreatedAt
	return ProfileView{ID: u.ID, Name: u.Name, Image: u.Image, Role: u.Role, JoinedAt: &joined}
}
