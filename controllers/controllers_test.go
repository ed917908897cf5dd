package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gin-gonic/gin"

	"github.com/devnovate/blog/config"
	"github.com/devnovate/blog/models"
	"github.com/devnovate/blog/services"
	"github.com/devnovate/blog/store"
	"github.com/devnovate/blog/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{
		JWTSecret:          "controllers-test-secret",
		OAuthRedirectBase:  "https://blog.example.com/",
		GitHubClientID:     "gh-id",
		GitHubClientSecret: "gh-secret",
	})
	os.Exit(m.Run())
}

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return ctx, rec
}

func decodeResponse(c *qt.C, rec *httptest.ResponseRecorder) utils.JSONResponse {
	c.Helper()
	var resp utils.JSONResponse
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &resp), qt.IsNil)
	return resp
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, services.DefaultPageSize},
		{"page=3&limit=5", 3, 5},
		{"page=2&page_size=7", 2, 7},
		{"limit=4&page_size=9", 1, 4},
		{"page=-2&limit=0", 1, services.DefaultPageSize},
		{"limit=5000", 1, services.MaxPageSize},
		{"page=abc", 1, services.DefaultPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c := qt.New(t)
			ctx, _ := testContext("/api/blogs?" + tt.query)
			page, limit := parsePagination(ctx)
			c.Assert(page, qt.Equals, tt.wantPage)
			c.Assert(limit, qt.Equals, tt.wantLimit)
		})
	}
}

func TestPagePayload(t *testing.T) {
	c := qt.New(t)
	p := &services.PostPage{Items: []*models.Post{}, Page: 2, Limit: 10, Total: 25}
	payload := pagePayload(p)
	pagination := payload["pagination"].(gin.H)
	c.Assert(pagination["total_pages"], qt.Equals, 3)
	c.Assert(pagination["has_next"], qt.IsTrue)
	c.Assert(pagination["has_prev"], qt.IsTrue)
	c.Assert(pagination["total_blogs"], qt.Equals, int64(25))
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
		wantMsg    string
	}{
		{"validation", &services.ValidationError{Field: "title", Message: "title is required"}, 400, 40010, "title is required"},
		{"transition", &services.TransitionError{Action: services.ActionApprove, From: models.StatusApproved}, 400, 40011, "cannot approve a blog that is approved"},
		{"unauthorized", services.ErrUnauthorized, 401, 40108, "authentication required"},
		{"forbidden", fmt.Errorf("%w: not yours", services.ErrForbidden), 403, 40310, "not authorized: not yours"},
		{"not found", services.ErrPostNotFound, 404, 40410, "blog not found"},
		{"internal", errors.New("disk on fire"), 500, 59999, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			ctx, rec := testContext("/api/blogs")
			respondServiceError(ctx, tt.err, 59999)
			c.Assert(rec.Code, qt.Equals, tt.wantStatus)
			resp := decodeResponse(c, rec)
			c.Assert(resp.Code, qt.Equals, tt.wantCode)
			c.Assert(resp.Message, qt.Equals, tt.wantMsg)
		})
	}
}

func TestValidateUsername(t *testing.T) {
	c := qt.New(t)
	c.Assert(validateUsername("alice_dev"), qt.Equals, "")
	c.Assert(validateUsername("Bob-99"), qt.Equals, "")
	c.Assert(validateUsername("ab"), qt.Equals, "username must be 3-30 characters")
	c.Assert(validateUsername("a234567890123456789012345678901"), qt.Equals, "username must be 3-30 characters")
	c.Assert(validateUsername("has space"), qt.Not(qt.Equals), "")
	c.Assert(validateUsername("émile"), qt.Not(qt.Equals), "")
}

func TestNormalizeEmail(t *testing.T) {
	c := qt.New(t)
	email, ok := normalizeEmail("  Alice@Example.COM ")
	c.Assert(ok, qt.IsTrue)
	c.Assert(email, qt.Equals, "alice@example.com")

	for _, bad := range []string{"", "alice", "Alice <alice@example.com>", "a@b@c"} {
		_, ok := normalizeEmail(bad)
		c.Assert(ok, qt.IsFalse, qt.Commentf("email %q", bad))
	}
}

func TestSanitizeUsername(t *testing.T) {
	c := qt.New(t)
	c.Assert(sanitizeUsername("  John.Doe "), qt.Equals, "john_doe")
	c.Assert(sanitizeUsername("__x!y__"), qt.Equals, "xy")
	c.Assert(sanitizeUsername("李"), qt.Equals, "")
}

func TestFindOrCreateOAuthUser(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	st := store.NewMemoryStore()
	a := NewAuthController(st)

	taken := &models.User{Username: "octocat", Email: "someone@example.com"}
	c.Assert(st.CreateUser(ctx, taken), qt.IsNil)

	user, err := a.findOrCreateOAuthUser(ctx, "github", &oauthUser{ID: "42", Username: "OctoCat", AvatarURL: "https://avatars/42"})
	c.Assert(err, qt.IsNil)
	c.Assert(user.Username, qt.Equals, "octocat_1")
	c.Assert(user.Provider, qt.Equals, "github")
	c.Assert(user.ProfileImage, qt.Equals, "https://avatars/42")
	c.Assert(user.Email, qt.Equals, "")

	again, err := a.findOrCreateOAuthUser(ctx, "github", &oauthUser{ID: "42", Username: "OctoCat", Email: "Octo@Example.com"})
	c.Assert(err, qt.IsNil)
	c.Assert(again.ID, qt.Equals, user.ID)
	c.Assert(again.Email, qt.Equals, "octo@example.com")

	short, err := a.findOrCreateOAuthUser(ctx, "google", &oauthUser{ID: "777", Username: "x"})
	c.Assert(err, qt.IsNil)
	c.Assert(short.Username, qt.Equals, "google_777")
}

func TestOAuthRedirect(t *testing.T) {
	c := qt.New(t)
	a := NewAuthController(store.NewMemoryStore())

	ctx, rec := testContext("/api/auth/oauth/github/login")
	ctx.Params = gin.Params{{Key: "provider", Value: "github"}}
	a.OAuthRedirect(ctx)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)

	var resp struct {
		Data struct {
			AuthorizationURL string `json:"authorization_url"`
			State            string `json:"state"`
		} `json:"data"`
	}
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &resp), qt.IsNil)
	u, err := url.Parse(resp.Data.AuthorizationURL)
	c.Assert(err, qt.IsNil)
	c.Assert(u.Host, qt.Equals, "github.com")
	c.Assert(u.Query().Get("client_id"), qt.Equals, "gh-id")
	c.Assert(u.Query().Get("state"), qt.Equals, resp.Data.State)
	c.Assert(u.Query().Get("redirect_uri"), qt.Equals, "https://blog.example.com/api/auth/oauth/github/callback")

	ctx, rec = testContext("/api/auth/oauth/google/login")
	ctx.Params = gin.Params{{Key: "provider", Value: "google"}}
	a.OAuthRedirect(ctx)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(decodeResponse(c, rec).Message, qt.Equals, "google oauth not configured")
}

func TestOAuthCallbackRejectsUnknownState(t *testing.T) {
	c := qt.New(t)
	a := NewAuthController(store.NewMemoryStore())

	ctx, rec := testContext("/api/auth/oauth/github/callback?code=abc")
	ctx.Params = gin.Params{{Key: "provider", Value: "github"}}
	a.OAuthCallback(ctx)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(decodeResponse(c, rec).Code, qt.Equals, 40005)

	ctx, rec = testContext("/api/auth/oauth/github/callback?code=abc&state=forged")
	ctx.Params = gin.Params{{Key: "provider", Value: "github"}}
	a.OAuthCallback(ctx)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(decodeResponse(c, rec).Code, qt.Equals, 40006)
}
