package events

import (
	"time"

	"github.com/devnovate/blog/models"
)

const (
	TypePostSubmitted = "post.submitted"
	TypePostApproved  = "post.approved"
	TypePostRejected  = "post.rejected"
	TypePostHidden    = "post.hidden"
	TypePostDeleted   = "post.deleted"
)

type PostPayload struct {
	PostID      string `json:"post_id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	AuthorID    string `json:"author_id"`
	AuthorName  string `json:"author_name,omitempty"`
	AuthorEmail string `json:"author_email,omitempty"`
	Feedback    string `json:"feedback,omitempty"`
}

// Event is a moderation lifecycle notification.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   PostPayload `json:"payload"`
}

// NewPostEvent snapshots post for an event of the given type. author may be nil.
func NewPostEvent(eventType string, post *models.Post, author *models.User) Event {
	e := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload: PostPayload{
			PostID:   post.ID,
			Title:    post.Title,
			Status:   string(post.Status),
			AuthorID: post.AuthorID,
			Feedback: post.AdminFeedback,
		},
	}
	if author != nil {
		e.Payload.AuthorName = author.Username
		e.Payload.AuthorEmail = author.Email
	}
	return e
}
