package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Status is the moderation state of a post.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusHidden   Status = "hidden"
)

// Statuses lists every moderation state.
var Statuses = []Status{StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusHidden}

// Valid reports whether s is a known moderation state.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Categories is the closed set of post categories.
var Categories = []string{
	"Technology",
	"Programming",
	"Web Development",
	"Mobile Development",
	"AI/ML",
	"DevOps",
	"Design",
	"Other",
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

const (
	MaxTitleLength   = 200
	MaxExcerptLength = 300
	MaxCommentLength = 1000
	AutoExcerptRunes = 200
)

// Post is a blog entry together with its engagement data.
type Post struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	Title         string     `gorm:"size:200;not null" json:"title" bson:"title"`
	Content       string     `gorm:"type:text;not null" json:"content" bson:"content"`
	Excerpt       string     `gorm:"size:300" json:"excerpt" bson:"excerpt"`
	AuthorID      string     `gorm:"size:36;index;not null" json:"author_id" bson:"author_id"`
	Author        *Author    `gorm:"-" json:"author,omitempty" bson:"-"`
	Category      string     `gorm:"size:32;index;not null" json:"category" bson:"category"`
	Tags          StringList `gorm:"type:text" json:"tags" bson:"tags"`
	FeaturedImage string     `gorm:"size:1024" json:"featured_image" bson:"featured_image"`
	Status        Status     `gorm:"size:16;index;not null;default:'pending'" json:"status" bson:"status"`
	Likes         StringList `gorm:"-" json:"likes" bson:"likes"`
	Comments      []Comment  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE;" json:"comments" bson:"comments"`
	Views         int64      `gorm:"not null;default:0" json:"views" bson:"views"`
	AdminFeedback string     `gorm:"type:text" json:"admin_feedback" bson:"admin_feedback"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
	PublishedAt   *time.Time `gorm:"index" json:"published_at,omitempty" bson:"published_at,omitempty"`
}

// LikedBy reports whether userID is in the post's like set.
func (p *Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Normalize replaces nil collections with empty ones so payloads always carry arrays.
func (p *Post) Normalize() {
	if p.Tags == nil {
		p.Tags = StringList{}
	}
	if p.Likes == nil {
		p.Likes = StringList{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}

// Clone returns a deep copy of p.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Tags = append(StringList(nil), p.Tags...)
	cp.Likes = append(StringList(nil), p.Likes...)
	cp.Comments = make([]Comment, len(p.Comments))
	for i, c := range p.Comments {
		cp.Comments[i] = c
		if c.User != nil {
			u := *c.User
			cp.Comments[i].User = &u
		}
	}
	if p.Author != nil {
		a := *p.Author
		cp.Author = &a
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		cp.PublishedAt = &t
	}
	cp.Normalize()
	return &cp
}

// PostLike is one row of a post's like set in SQL stores.
type PostLike struct {
	PostID    string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"primaryKey;size:36;index"`
	CreatedAt time.Time `gorm:"index"`
}

// StringList is a list of strings stored as a JSON array in SQL columns.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("models: unsupported StringList source")
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*l = out
	return nil
}
