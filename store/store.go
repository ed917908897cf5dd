// Package store persists posts, their engagement and user accounts.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/devnovate/blog/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("store: duplicate record")
	// ErrPrecondition is returned when an update's expected status no longer holds.
	ErrPrecondition = errors.New("store: precondition failed")
)

// SortField is the order applied to post listings. All but SortOldest are newest first.
type SortField string

const (
	SortCreatedAt   SortField = "created_at"
	SortPublishedAt SortField = "published_at"
	SortViews       SortField = "views"
	// SortOldest is creation order. It is not reachable from ParseSort.
	SortOldest SortField = "oldest"
)

type sortKey struct {
	column string
	desc   bool
}

// sortKeys expands field into column orderings. Newest-first sorts on another
// column break ties on created_at; created_at never appears twice.
func sortKeys(field SortField) []sortKey {
	switch field {
	case SortOldest:
		return []sortKey{{column: "created_at"}}
	case SortPublishedAt, SortViews:
		return []sortKey{{column: string(field), desc: true}, {column: "created_at", desc: true}}
	default:
		return []sortKey{{column: "created_at", desc: true}}
	}
}

// ParseSort maps a query value to a SortField, falling back to SortCreatedAt.
func ParseSort(v string) SortField {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "publishedat", "published_at":
		return SortPublishedAt
	case "views":
		return SortViews
	default:
		return SortCreatedAt
	}
}

// PostFilter narrows FindPosts and CountPosts. Zero fields do not filter.
type PostFilter struct {
	Statuses []models.Status
	AuthorID string
	Category string
	// Search matches title, content and tags.
	Search string
	// IDs restricts results to the given ids when non-nil; an empty non-nil slice matches nothing.
	IDs []string
}

// Page is an offset window. Limit <= 0 means unbounded.
type Page struct {
	Offset int
	Limit  int
}

// PostPatch lists the fields UpdatePost changes. Nil fields are left untouched.
type PostPatch struct {
	Title         *string
	Content       *string
	Excerpt       *string
	Category      *string
	FeaturedImage *string
	Tags          *models.StringList
	Status        *models.Status
	AdminFeedback *string
	PublishedAt   *time.Time

	// ExpectStatus, when set, makes the update conditional on the current status.
	ExpectStatus []models.Status
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Liked bool
	Count int
}

// Store is the persistence boundary used by services and tools.
type Store interface {
	CreatePost(ctx context.Context, post *models.Post) error
	FindPost(ctx context.Context, id string) (*models.Post, error)
	FindPosts(ctx context.Context, filter PostFilter, sort SortField, page Page) ([]*models.Post, error)
	CountPosts(ctx context.Context, filter PostFilter) (int64, error)
	UpdatePost(ctx context.Context, id string, patch PostPatch) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, postID, userID string) (LikeResult, error)
	AddComment(ctx context.Context, postID string, comment *models.Comment) error
	DeleteComment(ctx context.Context, postID, commentID string) error

	CreateUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByProvider(ctx context.Context, provider, providerID string) (*models.User, error)
	FindUsersByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context, page Page) ([]*models.User, error)
	// CountUsers counts users with the given role, or all users when role is empty.
	CountUsers(ctx context.Context, role models.Role) (int64, error)
	DeleteUsersByRole(ctx context.Context, role models.Role) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// ApprovedPosts returns every publicly visible post in creation order, oldest first.
func ApprovedPosts(ctx context.Context, s Store) ([]*models.Post, error) {
	return s.FindPosts(ctx, PostFilter{Statuses: []models.Status{models.StatusApproved}}, SortOldest, Page{})
}

func statusIn(s models.Status, set []models.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
