package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role decides which moderation actions a user may take.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username" bson:"username"`
	Email        string    `gorm:"size:255;index" json:"email" bson:"email"`
	PasswordHash string    `gorm:"size:255" json:"-" bson:"password_hash"`
	Role         Role      `gorm:"size:16;index;not null;default:'user'" json:"role" bson:"role"`
	Bio          string    `gorm:"size:500" json:"bio" bson:"bio"`
	ProfileImage string    `gorm:"size:512" json:"profile_image" bson:"profile_image"`
	Provider     string    `gorm:"size:32;index:idx_users_provider" json:"provider,omitempty" bson:"provider,omitempty"`
	ProviderID   string    `gorm:"size:255;index:idx_users_provider" json:"-" bson:"provider_id,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// BeforeCreate assigns an id and timestamps when the caller left them empty.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.Prepare(time.Now())
	return nil
}

// BeforeUpdate refreshes UpdatedAt.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// Prepare fills id, role and timestamps for a new user. Stores without hooks call it directly.
func (u *User) Prepare(now time.Time) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

// Summary returns the public projection embedded in posts and comments.
func (u *User) Summary() *Author {
	if u == nil {
		return nil
	}
	return &Author{
		ID:           u.ID,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
		Bio:          u.Bio,
	}
}

// Author is the public view of a user attached to posts and comments.
type Author struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image"`
	Bio          string `json:"bio,omitempty"`
	Email        string `json:"email,omitempty"`
}
