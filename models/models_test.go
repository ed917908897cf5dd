package models

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestStatusValid(t *testing.T) {
	c := qt.New(t)
	for _, s := range Statuses {
		c.Assert(s.Valid(), qt.IsTrue, qt.Commentf("status %q", s))
	}
	c.Assert(Status("published").Valid(), qt.IsFalse)
	c.Assert(Status("").Valid(), qt.IsFalse)
	c.Assert(ValidCategory("AI/ML"), qt.IsTrue)
	c.Assert(ValidCategory("ai/ml"), qt.IsFalse)
}

func TestStringListScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want StringList
	}{
		{"nil", nil, StringList{}},
		{"empty bytes", []byte{}, StringList{}},
		{"bytes", []byte(`["go","web"]`), StringList{"go", "web"}},
		{"string", `["a"]`, StringList{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			var l StringList
			c.Assert(l.Scan(tt.src), qt.IsNil)
			c.Assert(l, qt.DeepEquals, tt.want)
		})
	}

	c := qt.New(t)
	var l StringList
	c.Assert(l.Scan(42), qt.ErrorMatches, "models: unsupported StringList source")
	c.Assert(l.Scan("{"), qt.IsNotNil)

	v, err := StringList(nil).Value()
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, "[]")
	v, err = StringList{"x", "y"}.Value()
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, `["x","y"]`)
}

func TestPostCloneIsDeep(t *testing.T) {
	c := qt.New(t)
	published := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	orig := &Post{
		ID:          "p1",
		Tags:        StringList{"go"},
		Likes:       StringList{"u1"},
		Comments:    []Comment{{ID: "c1", User: &Author{Username: "alice"}}},
		Author:      &Author{Username: "bob"},
		PublishedAt: &published,
	}
	cp := orig.Clone()
	cp.Tags[0] = "rust"
	cp.Likes = append(cp.Likes, "u2")
	cp.Comments[0].User.Username = "mallory"
	cp.Author.Username = "eve"
	*cp.PublishedAt = time.Time{}

	c.Assert(orig.Tags, qt.DeepEquals, StringList{"go"})
	c.Assert(orig.Likes, qt.DeepEquals, StringList{"u1"})
	c.Assert(orig.Comments[0].User.Username, qt.Equals, "alice")
	c.Assert(orig.Author.Username, qt.Equals, "bob")
	c.Assert(orig.PublishedAt.Equal(published), qt.IsTrue)
	c.Assert(orig.LikedBy("u1"), qt.IsTrue)
	c.Assert(orig.LikedBy("u2"), qt.IsFalse)

	var nilPost *Post
	c.Assert(nilPost.Clone(), qt.IsNil)
}

func TestPostNormalize(t *testing.T) {
	c := qt.New(t)
	p := &Post{}
	p.Normalize()
	c.Assert(p.Tags, qt.IsNotNil)
	c.Assert(p.Likes, qt.IsNotNil)
	c.Assert(p.Comments, qt.IsNotNil)
}

func TestUserPrepare(t *testing.T) {
	c := qt.New(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	u := &User{Username: "alice", Email: "a@example.com"}
	u.Prepare(now)
	c.Assert(u.ID, qt.Not(qt.Equals), "")
	c.Assert(u.Role, qt.Equals, RoleUser)
	c.Assert(u.CreatedAt, qt.Equals, now)

	id := u.ID
	later := now.Add(time.Hour)
	u.Prepare(later)
	c.Assert(u.ID, qt.Equals, id)
	c.Assert(u.CreatedAt, qt.Equals, now)
	c.Assert(u.UpdatedAt, qt.Equals, later)

	s := u.Summary()
	c.Assert(s.Username, qt.Equals, "alice")
	c.Assert(s.Email, qt.Equals, "")
	var nilUser *User
	c.Assert(nilUser.Summary(), qt.IsNil)
}
