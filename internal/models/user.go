package models

import (
	"time"
)

// Role is the authorization role attached to an account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// AccountState is the lifecycle state of a user account.
//
// The only transitions are active -> withdrawn, withdrawn -> active (restore),
// withdrawn -> withdrawn (re-stamp) and withdrawn -> anonymized. Anonymized is
// terminal.
type AccountState string

const (
	AccountActive     AccountState = "active"
	AccountWithdrawn  AccountState = "withdrawn"
	AccountAnonymized AccountState = "anonymized"
)

const (
	// AnonymizedEmailPrefix marks an email that has already been scrubbed.
	AnonymizedEmailPrefix = "anonymized_"
	// AnonymizedEmailDomain is the sentinel domain of scrubbed emails.
	AnonymizedEmailDomain = "deleted.inkwell"
	// AnonymizedName replaces the display name of scrubbed accounts.
	AnonymizedName = "Withdrawn user"
)

// User represents an account on the blog.
type User struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"not null" json:"name"`
	Email       string       `gorm:"uniqueIndex;not null" json:"email"`
	Passwd      *string      `gorm:"column:passwd" json:"-"`
	Image       *string      `json:"image"`
	Role        Role         `gorm:"type:varchar(16);not null;default:'USER'" json:"role"`
	State       AccountState `gorm:"type:varchar(16);not null;default:'active';index" json:"state"`
	WithdrawnAt *time.Time   `gorm:"index" json:"withdrawn_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsDeleted reports whether the account has been withdrawn, anonymized or not.
func (u *User) IsDeleted() bool {
	return u.State != AccountActive && u.State != ""
}

// IsAdmin reports whether the user carries the ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsAnonymized reports whether personal fields have been scrubbed.
func (u *User) IsAnonymized() bool {
	return u.State == AccountAnonymized
}
