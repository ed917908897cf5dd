package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/devnovate/blog/models"
)

func newGormStore(c *qt.C) *GormStore {
	db, err := gorm.Open(sqlite.Open(filepath.Join(c.TempDir(), "blog.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	c.Assert(err, qt.IsNil)
	c.Assert(db.AutoMigrate(Models...), qt.IsNil)
	s := NewGormStore(db)
	c.Cleanup(func() { s.Close() })
	return s
}

func TestGormStorePosts(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := newGormStore(c)
	c.Assert(s.Ping(ctx), qt.IsNil)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.Assert(s.CreatePost(ctx, newPost("new", models.StatusApproved, base.Add(2*time.Hour))), qt.IsNil)
	c.Assert(s.CreatePost(ctx, newPost("old", models.StatusApproved, base)), qt.IsNil)
	c.Assert(s.CreatePost(ctx, newPost("mid", models.StatusApproved, base.Add(time.Hour))), qt.IsNil)
	c.Assert(s.CreatePost(ctx, newPost("draft", models.StatusDraft, base.Add(3*time.Hour))), qt.IsNil)

	ids := func(posts []*models.Post) []string {
		out := make([]string, 0, len(posts))
		for _, p := range posts {
			out = append(out, p.ID)
		}
		return out
	}

	approved, err := ApprovedPosts(ctx, s)
	c.Assert(err, qt.IsNil)
	c.Assert(ids(approved), qt.DeepEquals, []string{"old", "mid", "new"})

	newest, err := s.FindPosts(ctx, PostFilter{Statuses: []models.Status{models.StatusApproved}}, SortCreatedAt, Page{Limit: 2})
	c.Assert(err, qt.IsNil)
	c.Assert(ids(newest), qt.DeepEquals, []string{"new", "mid"})

	c.Assert(s.IncrementViews(ctx, "old"), qt.IsNil)
	c.Assert(s.IncrementViews(ctx, "old"), qt.IsNil)
	c.Assert(s.IncrementViews(ctx, "missing"), qt.ErrorIs, ErrNotFound)
	byViews, err := s.FindPosts(ctx, PostFilter{Statuses: []models.Status{models.StatusApproved}}, SortViews, Page{})
	c.Assert(err, qt.IsNil)
	c.Assert(ids(byViews), qt.DeepEquals, []string{"old", "new", "mid"})
	c.Assert(byViews[0].Views, qt.Equals, int64(2))

	total, err := s.CountPosts(ctx, PostFilter{Statuses: []models.Status{models.StatusApproved}})
	c.Assert(err, qt.IsNil)
	c.Assert(total, qt.Equals, int64(3))

	none, err := s.FindPosts(ctx, PostFilter{IDs: []string{}}, SortCreatedAt, Page{})
	c.Assert(err, qt.IsNil)
	c.Assert(none, qt.HasLen, 0)
}

func TestGormStoreConditionalUpdate(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := newGormStore(c)
	c.Assert(s.CreatePost(ctx, newPost("p1", models.StatusPending, time.Now().UTC())), qt.IsNil)

	approved := models.StatusApproved
	published := time.Now().UTC().Truncate(time.Second)
	post, err := s.UpdatePost(ctx, "p1", PostPatch{
		Status:       &approved,
		PublishedAt:  &published,
		ExpectStatus: []models.Status{models.StatusPending},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(post.Status, qt.Equals, models.StatusApproved)
	c.Assert(post.PublishedAt, qt.Not(qt.IsNil))

	// the post already left pending, so a second approval loses the race
	_, err = s.UpdatePost(ctx, "p1", PostPatch{
		Status:       &approved,
		ExpectStatus: []models.Status{models.StatusPending},
	})
	c.Assert(err, qt.ErrorIs, ErrPrecondition)

	_, err = s.UpdatePost(ctx, "missing", PostPatch{Status: &approved})
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	title := "Renamed"
	tags := models.StringList{"go", "gorm"}
	post, err = s.UpdatePost(ctx, "p1", PostPatch{Title: &title, Tags: &tags})
	c.Assert(err, qt.IsNil)
	c.Assert(post.Title, qt.Equals, "Renamed")
	c.Assert([]string(post.Tags), qt.DeepEquals, []string{"go", "gorm"})
}

func TestGormStoreEngagement(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := newGormStore(c)
	c.Assert(s.CreatePost(ctx, newPost("p1", models.StatusApproved, time.Now().UTC())), qt.IsNil)

	res, err := s.ToggleLike(ctx, "p1", "u1")
	c.Assert(err, qt.IsNil)
	c.Assert(res, qt.Equals, LikeResult{Liked: true, Count: 1})
	res, err = s.ToggleLike(ctx, "p1", "u2")
	c.Assert(err, qt.IsNil)
	c.Assert(res, qt.Equals, LikeResult{Liked: true, Count: 2})
	res, err = s.ToggleLike(ctx, "p1", "u1")
	c.Assert(err, qt.IsNil)
	c.Assert(res, qt.Equals, LikeResult{Liked: false, Count: 1})
	_, err = s.ToggleLike(ctx, "missing", "u1")
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	now := time.Now().UTC()
	c.Assert(s.AddComment(ctx, "p1", &models.Comment{ID: "c2", UserID: "u2", Text: "second", CreatedAt: now.Add(time.Minute)}), qt.IsNil)
	c.Assert(s.AddComment(ctx, "p1", &models.Comment{ID: "c1", UserID: "u1", Text: "first", CreatedAt: now}), qt.IsNil)
	c.Assert(s.AddComment(ctx, "missing", &models.Comment{ID: "c3", UserID: "u1", Text: "x"}), qt.ErrorIs, ErrNotFound)

	post, err := s.FindPost(ctx, "p1")
	c.Assert(err, qt.IsNil)
	c.Assert([]string(post.Likes), qt.DeepEquals, []string{"u2"})
	c.Assert(post.Comments, qt.HasLen, 2)
	c.Assert(post.Comments[0].ID, qt.Equals, "c1")

	c.Assert(s.DeleteComment(ctx, "p1", "c1"), qt.IsNil)
	c.Assert(s.DeleteComment(ctx, "p1", "c1"), qt.ErrorIs, ErrNotFound)

	c.Assert(s.DeletePost(ctx, "p1"), qt.IsNil)
	c.Assert(s.DeletePost(ctx, "p1"), qt.ErrorIs, ErrNotFound)
	_, err = s.FindPost(ctx, "p1")
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	var leftover int64
	c.Assert(s.db.Model(&models.PostLike{}).Where("post_id = ?", "p1").Count(&leftover).Error, qt.IsNil)
	c.Assert(leftover, qt.Equals, int64(0))
}

func TestGormStoreUsers(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	s := newGormStore(c)

	alice := &models.User{Username: "alice", Email: "alice@example.com"}
	c.Assert(s.CreateUser(ctx, alice), qt.IsNil)
	c.Assert(alice.ID, qt.Not(qt.Equals), "")
	c.Assert(alice.Role, qt.Equals, models.RoleUser)
	c.Assert(s.CreateUser(ctx, &models.User{Username: "carol", Role: models.RoleAdmin}), qt.IsNil)

	got, err := s.FindUser(ctx, alice.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Username, qt.Equals, "alice")
	_, err = s.FindUser(ctx, "missing")
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	got, err = s.FindUserByEmail(ctx, "alice@example.com")
	c.Assert(err, qt.IsNil)
	c.Assert(got.ID, qt.Equals, alice.ID)

	got.Role = models.RoleAdmin
	c.Assert(s.UpdateUser(ctx, got), qt.IsNil)
	admins, err := s.CountUsers(ctx, models.RoleAdmin)
	c.Assert(err, qt.IsNil)
	c.Assert(admins, qt.Equals, int64(2))

	n, err := s.DeleteUsersByRole(ctx, models.RoleAdmin)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, int64(2))
	all, err := s.CountUsers(ctx, "")
	c.Assert(err, qt.IsNil)
	c.Assert(all, qt.Equals, int64(0))
}
