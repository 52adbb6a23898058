// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Category is permanent reference data that posts are filed under.
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
	// PostCount is not persisted; computed at query time
	PostCount int64 `gorm:"->;-:migration" json:"post_count"`
}

// Post represents a blog post.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	WriterID   uint      `gorm:"not null;index" json:"writer_id"`
	Writer     User      `gorm:"foreignKey:WriterID" json:"writer"`
	CategoryID uint      `gorm:"not null;index" json:"category_id"`
	Category   Category  `gorm:"foreignKey:CategoryID" json:"category"`
	IsDeleted  bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	// LikeCount is not persisted; computed at query time
	LikeCount int64 `gorm:"->;-:migration" json:"like_count"`
	// CommentCount is not persisted; computed at query time
	CommentCount int64 `gorm:"->;-:migration" json:"comment_count"`
	// Liked is not persisted; true when the viewing user liked the post
	Liked bool `gorm:"->;-:migration" json:"liked"`
}

// PostLike marks that a user liked a post. Existence of the row is the like.
type PostLike struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// StopWord is a token dropped from free-text search queries.
type StopWord struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Word string `gorm:"uniqueIndex;not null" json:"word"`
}
