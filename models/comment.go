package models

import "time"

// Comment is a reader reply attached to a post.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	PostID    string    `gorm:"size:36;index;not null" json:"post_id,omitempty" bson:"-"`
	UserID    string    `gorm:"size:36;index;not null" json:"user_id" bson:"user_id"`
	User      *Author   `gorm:"-" json:"user,omitempty" bson:"-"`
	Text      string    `gorm:"type:text;not null" json:"text" bson:"text"`
	CreatedAt time.Time `gorm:"index" json:"created_at" bson:"created_at"`
}
