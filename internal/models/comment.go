package models

import (
	"time"
)

// Comment is a comment on a post. ParentID points at another comment of the
// same post; only one level of nesting is rendered.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	WriterID  uint      `gorm:"not null;index" json:"writer_id"`
	Writer    User      `gorm:"foreignKey:WriterID" json:"writer"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	IsDeleted bool      `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
