package events

import (
	"context"
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devnovate/blog/models"
)

func TestNewPostEvent(t *testing.T) {
	c := qt.New(t)
	post := &models.Post{ID: "p1", Title: "Hello", AuthorID: "u1", Status: models.StatusRejected, AdminFeedback: "needs more detail"}
	author := &models.User{ID: "u1", Username: "jane", Email: "jane@example.com"}

	e := NewPostEvent(TypePostRejected, post, author)
	c.Assert(e.Type, qt.Equals, TypePostRejected)
	c.Assert(e.Timestamp.IsZero(), qt.IsFalse)
	c.Assert(e.Payload, qt.DeepEquals, PostPayload{
		PostID:      "p1",
		Title:       "Hello",
		Status:      "rejected",
		AuthorID:    "u1",
		AuthorName:  "jane",
		AuthorEmail: "jane@example.com",
		Feedback:    "needs more detail",
	})

	raw, err := json.Marshal(NewPostEvent(TypePostSubmitted, post, nil))
	c.Assert(err, qt.IsNil)
	var decoded map[string]any
	c.Assert(json.Unmarshal(raw, &decoded), qt.IsNil)
	payload := decoded["payload"].(map[string]any)
	_, hasEmail := payload["author_email"]
	c.Assert(hasEmail, qt.IsFalse)
}

func TestNoopPublisher(t *testing.T) {
	c := qt.New(t)
	var p Publisher = NoopPublisher{}
	c.Assert(p.Publish(context.Background(), Event{Type: TypePostApproved}), qt.IsNil)
}
