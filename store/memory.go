package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/devnovate/blog/models"
)

// MemoryStore keeps everything in process memory. Every method returns copies.
type MemoryStore struct {
	mu    sync.RWMutex
	seq   int64
	posts map[string]*memPost
	users map[string]*models.User
}

type memPost struct {
	seq  int64
	post *models.Post
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts: make(map[string]*memPost),
		users: make(map[string]*models.User),
	}
}

func (s *MemoryStore) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[post.ID]; ok {
		return ErrDuplicate
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}
	s.seq++
	cp := post.Clone()
	cp.Author = nil
	s.posts[post.ID] = &memPost{seq: s.seq, post: cp}
	return nil
}

func (s *MemoryStore) FindPost(_ context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mp, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return mp.post.Clone(), nil
}

func (s *MemoryStore) FindPosts(_ context.Context, filter PostFilter, field SortField, page Page) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := s.match(filter)
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].post, matched[j].post
		if field == SortOldest {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return matched[i].seq < matched[j].seq
		}
		switch field {
		case SortViews:
			if a.Views != b.Views {
				return a.Views > b.Views
			}
		case SortPublishedAt:
			at, bt := publishedOrZero(a), publishedOrZero(b)
			if !at.Equal(bt) {
				return at.After(bt)
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})
	start := page.Offset
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	out := make([]*models.Post, 0, end-start)
	for _, mp := range matched[start:end] {
		out = append(out, mp.post.Clone())
	}
	return out, nil
}

func (s *MemoryStore) CountPosts(_ context.Context, filter PostFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.match(filter))), nil
}

func (s *MemoryStore) match(f PostFilter) []*memPost {
	var ids map[string]struct{}
	if f.IDs != nil {
		ids = make(map[string]struct{}, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = struct{}{}
		}
	}
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]*memPost, 0, len(s.posts))
	for _, mp := range s.posts {
		p := mp.post
		if len(f.Statuses) > 0 && !statusIn(p.Status, f.Statuses) {
			continue
		}
		if f.AuthorID != "" && p.AuthorID != f.AuthorID {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if ids != nil {
			if _, ok := ids[p.ID]; !ok {
				continue
			}
		}
		if needle != "" && !postContains(p, needle) {
			continue
		}
		out = append(out, mp)
	}
	return out
}

func postContains(p *models.Post, needle string) bool {
	if strings.Contains(strings.ToLower(p.Title), needle) || strings.Contains(strings.ToLower(p.Content), needle) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func publishedOrZero(p *models.Post) time.Time {
	if p.PublishedAt == nil {
		return time.Time{}
	}
	return *p.PublishedAt
}

func (s *MemoryStore) UpdatePost(_ context.Context, id string, patch PostPatch) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mp, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p := mp.post
	if len(patch.ExpectStatus) > 0 && !statusIn(p.Status, patch.ExpectStatus) {
		return nil, ErrPrecondition
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Excerpt != nil {
		p.Excerpt = *patch.Excerpt
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.FeaturedImage != nil {
		p.FeaturedImage = *patch.FeaturedImage
	}
	if patch.Tags != nil {
		p.Tags = append(models.StringList{}, (*patch.Tags)...)
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.AdminFeedback != nil {
		p.AdminFeedback = *patch.AdminFeedback
	}
	if patch.PublishedAt != nil {
		t := *patch.PublishedAt
		p.PublishedAt = &t
	}
	p.UpdatedAt = time.Now()
	return p.Clone(), nil
}

func (s *MemoryStore) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *MemoryStore) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mp, ok := s.posts[id]
	if !ok {
		return ErrNotFound
	}
	mp.post.Views++
	return nil
}

func (s *MemoryStore) ToggleLike(_ context.Context, postID, userID string) (LikeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mp, ok := s.posts[postID]
	if !ok {
		return LikeResult{}, ErrNotFound
	}
	p := mp.post
	for i, id := range p.Likes {
		if id == userID {
			p.Likes = append(p.Likes[:i:i], p.Likes[i+1:]...)
			return LikeResult{Liked: false, Count: len(p.Likes)}, nil
		}
	}
	p.Likes = append(p.Likes, userID)
	return LikeResult{Liked: true, Count: len(p.Likes)}, nil
}

func (s *MemoryStore) AddComment(_ context.Context, postID string, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mp, ok := s.posts[postID]
	if !ok {
		return ErrNotFound
	}
	c := *comment
	c.PostID = postID
	c.User = nil
	mp.post.Comments = append(mp.post.Comments, c)
	return nil
}

func (s *MemoryStore) DeleteComment(_ context.Context, postID, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mp, ok := s.posts[postID]
	if !ok {
		return ErrNotFound
	}
	comments := mp.post.Comments
	for i := range comments {
		if comments[i].ID == commentID {
			mp.post.Comments = append(comments[:i:i], comments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Prepare(time.Now())
	if _, ok := s.users[user.ID]; ok {
		return ErrDuplicate
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Username, user.Username) {
			return ErrDuplicate
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) FindUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) findUser(match func(*models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	return s.findUser(func(u *models.User) bool { return u.Username == username })
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, ErrNotFound
	}
	return s.findUser(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *MemoryStore) FindUserByProvider(_ context.Context, provider, providerID string) (*models.User, error) {
	return s.findUser(func(u *models.User) bool { return u.Provider == provider && u.ProviderID == providerID })
}

func (s *MemoryStore) FindUsersByIDs(_ context.Context, ids []string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = time.Now()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context, page Page) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Username < all[j].Username
	})
	start := page.Offset
	if start < 0 {
		start = 0
	}
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if page.Limit > 0 && start+page.Limit < end {
		end = start + page.Limit
	}
	return all[start:end], nil
}

func (s *MemoryStore) CountUsers(_ context.Context, role models.Role) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, u := range s.users {
		if role == "" || u.Role == role {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteUsersByRole(_ context.Context, role models.Role) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, u := range s.users {
		if u.Role == role {
			delete(s.users, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
