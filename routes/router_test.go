package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gin-gonic/gin"

	"github.com/devnovate/blog/config"
	"github.com/devnovate/blog/models"
	"github.com/devnovate/blog/services"
	"github.com/devnovate/blog/storage"
	"github.com/devnovate/blog/store"
	"github.com/devnovate/blog/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{
		JWTSecret:      "router-test-secret",
		TokenTTLHours:  1,
		GinMode:        "test",
		AdminUsernames: []string{"root"},
		UploadMaxMB:    1,
	})
	os.Exit(m.Run())
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	c      *qt.C
	engine *gin.Engine
	store  *store.MemoryStore
	dir    string
}

func newTestServer(c *qt.C) *testServer {
	st := store.NewMemoryStore()
	dir := c.TempDir()
	files, err := storage.NewLocalStorage(dir, "/static/uploads")
	c.Assert(err, qt.IsNil)
	engine := SetupRouter(Deps{Store: st, Blogs: services.NewBlogService(st), Uploads: files})
	return &testServer{c: c, engine: engine, store: st, dir: dir}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.c.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.c.Assert(err, qt.IsNil)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

func (s *testServer) send(req *http.Request, token string) (int, envelope) {
	s.c.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	var env envelope
	s.c.Assert(json.Unmarshal(rec.Body.Bytes(), &env), qt.IsNil, qt.Commentf("body: %s", rec.Body.String()))
	return rec.Code, env
}

func decode[T any](c *qt.C, raw json.RawMessage) T {
	c.Helper()
	var v T
	c.Assert(json.Unmarshal(raw, &v), qt.IsNil)
	return v
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	} `json:"user"`
}

type blogView struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Excerpt       string   `json:"excerpt"`
	Status        string   `json:"status"`
	Views         int64    `json:"views"`
	Likes         []string `json:"likes"`
	AdminFeedback string   `json:"admin_feedback"`
	PublishedAt   *string  `json:"published_at"`
	Author        *struct {
		Username string `json:"username"`
	} `json:"author"`
	Comments []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"comments"`
	TrendingScore float64 `json:"trending_score"`
}

type listData struct {
	Blogs      []blogView `json:"blogs"`
	Pagination struct {
		CurrentPage int   `json:"current_page"`
		TotalPages  int   `json:"total_pages"`
		TotalBlogs  int64 `json:"total_blogs"`
		HasNext     bool  `json:"has_next"`
		HasPrev     bool  `json:"has_prev"`
	} `json:"pagination"`
}

func (s *testServer) register(username string) authData {
	s.c.Helper()
	code, env := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	})
	s.c.Assert(code, qt.Equals, http.StatusCreated, qt.Commentf("%+v", env))
	return decode[authData](s.c, env.Data)
}

func (s *testServer) createBlog(token string, body gin.H) blogView {
	s.c.Helper()
	code, env := s.do(http.MethodPost, "/api/blogs", token, body)
	s.c.Assert(code, qt.Equals, http.StatusCreated, qt.Commentf("%+v", env))
	return decode[struct {
		Blog blogView `json:"blog"`
	}](s.c, env.Data).Blog
}

func TestAuthFlow(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)

	alice := s.register("alice")
	c.Assert(alice.Token, qt.Not(qt.Equals), "")
	c.Assert(alice.User.Role, qt.Equals, "user")

	code, env := s.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "alice", "email": "other@example.com", "password": "secret1"})
	c.Assert(code, qt.Equals, http.StatusConflict)
	c.Assert(env.Code, qt.Equals, 40902)

	code, _ = s.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "al", "email": "x@example.com", "password": "secret1"})
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	code, _ = s.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "alicia", "email": "ALICE@example.com", "password": "secret1"})
	c.Assert(code, qt.Equals, http.StatusConflict)
	code, _ = s.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "carl", "email": "not-an-email", "password": "secret1"})
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	code, _ = s.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "carl", "email": "carl@example.com", "password": "123"})
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	code, env = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "Alice@Example.com", "password": "secret1"})
	c.Assert(code, qt.Equals, http.StatusOK)
	byEmail := decode[authData](c, env.Data)
	c.Assert(byEmail.User.ID, qt.Equals, alice.User.ID)

	code, _ = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "secret1"})
	c.Assert(code, qt.Equals, http.StatusOK)
	code, env = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong"})
	c.Assert(code, qt.Equals, http.StatusUnauthorized)
	c.Assert(env.Message, qt.Equals, "invalid credentials")

	code, env = s.do(http.MethodGet, "/api/auth/me", alice.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(decode[map[string]any](c, env.Data)["username"], qt.Equals, "alice")

	code, env = s.do(http.MethodPatch, "/api/auth/profile", alice.Token, gin.H{"bio": "<b>Gopher</b> at heart"})
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(decode[map[string]any](c, env.Data)["bio"], qt.Equals, "Gopher at heart")

	code, _ = s.do(http.MethodPost, "/api/auth/logout", alice.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	code, env = s.do(http.MethodGet, "/api/auth/me", alice.Token, nil)
	c.Assert(code, qt.Equals, http.StatusUnauthorized)
	c.Assert(env.Code, qt.Equals, 40104)

	root := s.register("root")
	c.Assert(root.User.Role, qt.Equals, "admin")
}

func TestModerationLifecycle(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)
	author := s.register("writer")
	reader := s.register("reader")
	admin := s.register("root")

	long := string(bytes.Repeat([]byte("a"), 250))
	blog := s.createBlog(author.Token, gin.H{
		"title":    "Concurrency in Go",
		"content":  long,
		"category": "Programming",
		"tags":     []string{"go", " concurrency "},
	})
	c.Assert(blog.Status, qt.Equals, "pending")
	c.Assert(blog.Excerpt, qt.Equals, long[:200]+"...")

	// pending posts are invisible to the public
	code, _ := s.do(http.MethodGet, "/api/blogs/"+blog.ID, "", nil)
	c.Assert(code, qt.Equals, http.StatusNotFound)
	code, env := s.do(http.MethodGet, "/api/blogs", "", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(decode[listData](c, env.Data).Blogs, qt.HasLen, 0)

	code, _ = s.do(http.MethodPut, "/api/admin/blogs/"+blog.ID+"/approve", reader.Token, nil)
	c.Assert(code, qt.Equals, http.StatusForbidden)
	code, _ = s.do(http.MethodPut, "/api/admin/blogs/"+blog.ID+"/approve", "", nil)
	c.Assert(code, qt.Equals, http.StatusUnauthorized)

	code, env = s.do(http.MethodPut, "/api/admin/blogs/"+blog.ID+"/approve", admin.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK, qt.Commentf("%+v", env))
	approved := decode[struct {
		Blog blogView `json:"blog"`
	}](c, env.Data).Blog
	c.Assert(approved.Status, qt.Equals, "approved")
	c.Assert(approved.PublishedAt, qt.IsNotNil)

	code, env = s.do(http.MethodPut, "/api/admin/blogs/"+blog.ID+"/approve", admin.Token, nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	c.Assert(env.Message, qt.Equals, "cannot approve a blog that is approved")

	code, env = s.do(http.MethodGet, "/api/blogs/"+blog.ID, "", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(decode[struct {
		Blog blogView `json:"blog"`
	}](c, env.Data).Blog.Views, qt.Equals, int64(1))

	code, env = s.do(http.MethodPut, "/api/blogs/"+blog.ID, author.Token, gin.H{"title": "New title"})
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	c.Assert(env.Message, qt.Equals, "cannot edit a blog that is approved")

	code, env = s.do(http.MethodPut, "/api/blogs/"+blog.ID, reader.Token, gin.H{"title": "Hijack"})
	c.Assert(code, qt.Equals, http.StatusForbidden)

	code, env = s.do(http.MethodGet, "/api/blogs", "", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	list := decode[listData](c, env.Data)
	c.Assert(list.Blogs, qt.HasLen, 1)
	c.Assert(list.Blogs[0].Author, qt.IsNotNil)
	c.Assert(list.Blogs[0].Author.Username, qt.Equals, "writer")
	c.Assert(list.Pagination.TotalBlogs, qt.Equals, int64(1))
	c.Assert(list.Pagination.HasNext, qt.IsFalse)

	code, _ = s.do(http.MethodPut, "/api/admin/blogs/"+blog.ID+"/hide", admin.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	code, _ = s.do(http.MethodGet, "/api/blogs/"+blog.ID, "", nil)
	c.Assert(code, qt.Equals, http.StatusNotFound)
}

func TestRejectAndResubmit(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)
	author := s.register("writer")
	admin := s.register("root")

	blog := s.createBlog(author.Token, gin.H{"title": "Draft idea", "content": "short", "category": "Other"})

	code, env := s.do(http.MethodPut, "/api/admin/blogs/"+blog.ID+"/reject", admin.Token, gin.H{"feedback": "needs more detail"})
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(decode[struct {
		Blog blogView `json:"blog"`
	}](c, env.Data).Blog.AdminFeedback, qt.Equals, "needs more detail")

	code, env = s.do(http.MethodGet, "/api/blogs/user/my-blogs", author.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	mine := decode[listData](c, env.Data)
	c.Assert(mine.Blogs, qt.HasLen, 1)
	c.Assert(mine.Blogs[0].Status, qt.Equals, "rejected")
	c.Assert(mine.Blogs[0].AdminFeedback, qt.Equals, "needs more detail")

	code, env = s.do(http.MethodPut, "/api/blogs/"+blog.ID, author.Token, gin.H{"content": "much longer and more detailed"})
	c.Assert(code, qt.Equals, http.StatusOK)
	updated := decode[struct {
		Blog blogView `json:"blog"`
	}](c, env.Data).Blog
	c.Assert(updated.Status, qt.Equals, "pending")
	c.Assert(updated.Title, qt.Equals, "Draft idea")

	code, env = s.do(http.MethodGet, "/api/admin/blogs?status=pending", admin.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(decode[listData](c, env.Data).Blogs, qt.HasLen, 1)

	code, _ = s.do(http.MethodGet, "/api/admin/blogs?status=bogus", admin.Token, nil)
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	code, env = s.do(http.MethodGet, "/api/admin/dashboard", admin.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	dash := decode[services.Dashboard](c, env.Data)
	c.Assert(dash.Stats, qt.Equals, services.DashboardStats{TotalBlogs: 1, PendingBlogs: 1, ApprovedBlogs: 0, TotalUsers: 2})
	c.Assert(dash.RecentBlogs, qt.HasLen, 1)
}

func TestEngagement(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)
	author := s.register("writer")
	reader := s.register("reader")
	admin := s.register("root")

	popular := s.createBlog(author.Token, gin.H{"title": "Popular", "content": "x", "category": "Technology"})
	quiet := s.createBlog(author.Token, gin.H{"title": "Quiet", "content": "y", "category": "Design"})
	for _, id := range []string{popular.ID, quiet.ID} {
		code, _ := s.do(http.MethodPut, "/api/admin/blogs/"+id+"/approve", admin.Token, nil)
		c.Assert(code, qt.Equals, http.StatusOK)
	}

	code, env := s.do(http.MethodPost, "/api/blogs/"+popular.ID+"/like", reader.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(decode[services.LikeStatus](c, env.Data), qt.Equals, services.LikeStatus{Likes: 1, IsLiked: true})

	code, env = s.do(http.MethodGet, "/api/blogs/"+popular.ID, reader.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(decode[map[string]any](c, env.Data)["is_liked"], qt.Equals, true)

	code, _ = s.do(http.MethodPost, "/api/blogs/"+popular.ID+"/like", "", nil)
	c.Assert(code, qt.Equals, http.StatusUnauthorized)

	code, env = s.do(http.MethodPost, "/api/blogs/"+popular.ID+"/comment", reader.Token, gin.H{"text": "  Nice read  "})
	c.Assert(code, qt.Equals, http.StatusCreated)
	comment := decode[struct {
		Comment struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"comment"`
	}](c, env.Data).Comment
	c.Assert(comment.Text, qt.Equals, "Nice read")

	code, _ = s.do(http.MethodPost, "/api/blogs/"+popular.ID+"/comment", reader.Token, gin.H{"text": "   "})
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	code, env = s.do(http.MethodGet, "/api/blogs/trending", "", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	trending := decode[struct {
		Blogs []blogView `json:"blogs"`
	}](c, env.Data).Blogs
	c.Assert(trending, qt.HasLen, 2)
	c.Assert(trending[0].ID, qt.Equals, popular.ID)
	c.Assert(trending[0].TrendingScore > trending[1].TrendingScore, qt.IsTrue)

	code, _ = s.do(http.MethodDelete, "/api/blogs/"+popular.ID+"/comment/"+comment.ID, author.Token, nil)
	c.Assert(code, qt.Equals, http.StatusForbidden)
	code, _ = s.do(http.MethodDelete, "/api/blogs/"+popular.ID+"/comment/"+comment.ID, reader.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	code, _ = s.do(http.MethodDelete, "/api/blogs/"+popular.ID+"/comment/"+comment.ID, reader.Token, nil)
	c.Assert(code, qt.Equals, http.StatusNotFound)

	code, env = s.do(http.MethodGet, "/api/blogs?category=Design", "", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	byCategory := decode[listData](c, env.Data)
	c.Assert(byCategory.Blogs, qt.HasLen, 1)
	c.Assert(byCategory.Blogs[0].ID, qt.Equals, quiet.ID)

	code, env = s.do(http.MethodGet, "/api/blogs?search=popular&limit=1", "", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(decode[listData](c, env.Data).Blogs, qt.HasLen, 1)

	code, _ = s.do(http.MethodDelete, "/api/blogs/"+quiet.ID, reader.Token, nil)
	c.Assert(code, qt.Equals, http.StatusForbidden)
	code, _ = s.do(http.MethodDelete, "/api/blogs/"+quiet.ID, author.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	code, _ = s.do(http.MethodDelete, "/api/admin/blogs/"+popular.ID, admin.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)

	code, env = s.do(http.MethodGet, "/api/blogs", "", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(decode[listData](c, env.Data).Blogs, qt.HasLen, 0)

	code, env = s.do(http.MethodGet, "/api/blogs/trending", "", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(decode[trendingData](c, env.Data).Blogs, qt.HasLen, 0)
}

type trendingData struct {
	Blogs []blogView `json:"blogs"`
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func (m *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.entries[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return b, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *mapCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

func TestTrendingCacheFollowsViewsAndDeletes(t *testing.T) {
	c := qt.New(t)
	cache := &mapCache{entries: map[string][]byte{}}
	utils.SetResponseCache(cache)
	c.Cleanup(func() { utils.SetResponseCache(nil) })

	s := newTestServer(c)
	author := s.register("writer")
	admin := s.register("root")
	first := s.createBlog(author.Token, gin.H{"title": "First", "content": "a", "category": "Technology"})
	second := s.createBlog(author.Token, gin.H{"title": "Second", "content": "b", "category": "Technology"})
	for _, id := range []string{first.ID, second.ID} {
		code, _ := s.do(http.MethodPut, "/api/admin/blogs/"+id+"/approve", admin.Token, nil)
		c.Assert(code, qt.Equals, http.StatusOK)
	}

	code, env := s.do(http.MethodGet, "/api/blogs/trending", "", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	trending := decode[trendingData](c, env.Data).Blogs
	c.Assert(trending, qt.HasLen, 2)
	c.Assert(trending[0].ID, qt.Equals, first.ID)
	_, cached := cache.entries[utils.CacheKeyBlogTrending]
	c.Assert(cached, qt.IsTrue)

	for i := 0; i < 3; i++ {
		code, _ = s.do(http.MethodGet, "/api/blogs/"+second.ID, "", nil)
		c.Assert(code, qt.Equals, http.StatusOK)
	}

	code, env = s.do(http.MethodGet, "/api/blogs/trending", "", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	trending = decode[trendingData](c, env.Data).Blogs
	c.Assert(trending, qt.HasLen, 2)
	c.Assert(trending[0].ID, qt.Equals, second.ID)
	c.Assert(trending[0].Views, qt.Equals, int64(3))

	code, _ = s.do(http.MethodGet, "/api/blogs/missing-id", "", nil)
	c.Assert(code, qt.Equals, http.StatusNotFound)
	_, cached = cache.entries[utils.CacheKeyBlogTrending]
	c.Assert(cached, qt.IsTrue)

	code, _ = s.do(http.MethodDelete, "/api/admin/blogs/"+second.ID, admin.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	code, env = s.do(http.MethodGet, "/api/blogs/trending", "", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	trending = decode[trendingData](c, env.Data).Blogs
	c.Assert(trending, qt.HasLen, 1)
	c.Assert(trending[0].ID, qt.Equals, first.ID)
}

func multipartFile(c *qt.C, field, name string, data []byte) *http.Request {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, name)
	c.Assert(err, qt.IsNil)
	_, err = fw.Write(data)
	c.Assert(err, qt.IsNil)
	c.Assert(w.Close(), qt.IsNil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)
	user := s.register("painter")

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	code, env := s.send(multipartFile(c, "image", "cover.png", png), user.Token)
	c.Assert(code, qt.Equals, http.StatusCreated, qt.Commentf("%+v", env))
	up := decode[struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}](c, env.Data)
	c.Assert(up.URL, qt.Equals, "/static/uploads/"+up.Key)
	_, err := os.Stat(filepath.Join(s.dir, filepath.FromSlash(up.Key)))
	c.Assert(err, qt.IsNil)

	code, env = s.send(multipartFile(c, "image", "notes.txt", []byte("plain text")), user.Token)
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	c.Assert(env.Message, qt.Equals, "only image files are allowed")

	big := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 1<<20)...)
	code, _ = s.send(multipartFile(c, "image", "big.png", big), user.Token)
	c.Assert(code, qt.Equals, http.StatusBadRequest)

	code, _ = s.send(multipartFile(c, "image", "cover.png", png), "")
	c.Assert(code, qt.Equals, http.StatusUnauthorized)
}

func TestHealthAndNoRoute(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)

	code, env := s.do(http.MethodGet, "/health", "", nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	health := decode[struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}](c, env.Data)
	c.Assert(health.Status, qt.Equals, "ok")
	c.Assert(health.Checks, qt.DeepEquals, map[string]string{"store": "ok", "redis": "skipped", "storage": "ok"})

	code, env = s.do(http.MethodGet, "/api/nope", "", nil)
	c.Assert(code, qt.Equals, http.StatusNotFound)
	c.Assert(env.Code, qt.Equals, 40400)
}

func TestRoleChangeAppliesToIssuedToken(t *testing.T) {
	c := qt.New(t)
	s := newTestServer(c)
	ctx := context.Background()
	mod := s.register("moderator")

	user, err := s.store.FindUser(ctx, mod.User.ID)
	c.Assert(err, qt.IsNil)
	user.Role = models.RoleAdmin
	c.Assert(s.store.UpdateUser(ctx, user), qt.IsNil)
	code, _ := s.do(http.MethodGet, "/api/admin/dashboard", mod.Token, nil)
	c.Assert(code, qt.Equals, http.StatusOK)

	user.Role = models.RoleUser
	c.Assert(s.store.UpdateUser(ctx, user), qt.IsNil)
	code, _ = s.do(http.MethodGet, "/api/admin/dashboard", mod.Token, nil)
	c.Assert(code, qt.Equals, http.StatusForbidden)
}
