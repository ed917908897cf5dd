package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/devnovate/blog/config"
	"github.com/devnovate/blog/middleware"
	"github.com/devnovate/blog/models"
	"github.com/devnovate/blog/store"
	"github.com/devnovate/blog/utils"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 30
	maxBioLength      = 500
	oauthStateTTL     = 10 * time.Minute
)

// AuthController handles authentication related endpoints including local and third-party providers.
type AuthController struct {
	store store.Store
	// httpClient fetches OAuth provider profiles.
	httpClient *http.Client
}

func NewAuthController(st store.Store) *AuthController {
	return &AuthController{store: st, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

// Register handles local account registration with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "username, email and password are required")
		return
	}

	username := strings.TrimSpace(req.Username)
	if msg := validateUsername(username); msg != "" {
		utils.Error(ctx, http.StatusBadRequest, 40002, msg)
		return
	}
	email, ok := normalizeEmail(req.Email)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid email address")
		return
	}
	if len(req.Password) < utils.MinPasswordLength {
		utils.Error(ctx, http.StatusBadRequest, 40002, fmt.Sprintf("password must be at least %d characters", utils.MinPasswordLength))
		return
	}

	c := ctx.Request.Context()
	if _, err := a.store.FindUserByEmail(c, email); err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		utils.Logger.Error("lookup user by email failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to create user")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := a.store.CreateUser(c, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			utils.Error(ctx, http.StatusConflict, 40902, "username already exists")
			return
		}
		utils.Logger.Error("create user failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	a.issueToken(ctx, http.StatusCreated, user)
}

// Login verifies credentials given as email or username and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	c := ctx.Request.Context()
	var (
		user *models.User
		err  error
	)
	switch {
	case strings.TrimSpace(req.Email) != "":
		user, err = a.store.FindUserByEmail(c, strings.ToLower(strings.TrimSpace(req.Email)))
	case strings.TrimSpace(req.Username) != "":
		user, err = a.store.FindUserByUsername(c, strings.TrimSpace(req.Username))
	default:
		utils.Error(ctx, http.StatusBadRequest, 40003, "email or username is required")
		return
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		utils.Logger.Error("lookup user failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to log in")
		return
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid credentials")
		return
	}

	a.issueToken(ctx, http.StatusOK, user)
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(utils.TokenTTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, userResponse(user))
}

// UpdateProfile allows the authenticated user to update basic profile fields.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req struct {
		Email        *string `json:"email"`
		Bio          *string `json:"bio"`
		ProfileImage *string `json:"profile_image"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	c := ctx.Request.Context()

	if req.Email != nil {
		email, valid := normalizeEmail(*req.Email)
		if !valid {
			utils.Error(ctx, http.StatusBadRequest, 40031, "invalid email address")
			return
		}
		if email != user.Email {
			if other, err := a.store.FindUserByEmail(c, email); err == nil && other.ID != user.ID {
				utils.Error(ctx, http.StatusConflict, 40901, "email already registered")
				return
			}
		}
		user.Email = email
	}
	if req.Bio != nil {
		bio := utils.SanitizeText(*req.Bio)
		if utf8.RuneCountInString(bio) > maxBioLength {
			utils.Error(ctx, http.StatusBadRequest, 40032, fmt.Sprintf("bio cannot exceed %d characters", maxBioLength))
			return
		}
		user.Bio = bio
	}
	if req.ProfileImage != nil {
		user.ProfileImage = strings.TrimSpace(*req.ProfileImage)
	}

	if err := a.store.UpdateUser(c, user); err != nil {
		utils.Logger.Error("update profile failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update profile")
		return
	}
	// author summaries are embedded in cached listings
	invalidateBlogCaches()
	utils.Success(ctx, userResponse(user))
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}
	state := utils.NewState(oauthStateTTL)
	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}
	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	c := ctx.Request.Context()
	token, err := cfg.Exchange(c, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}
	info, err := a.fetchOAuthUser(c, provider, token)
	if err != nil {
		utils.Logger.Warn("fetch oauth profile failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to fetch user profile")
		return
	}
	user, err := a.findOrCreateOAuthUser(c, provider, info)
	if err != nil {
		utils.Logger.Error("persist oauth user failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}
	a.issueToken(ctx, http.StatusOK, user)
}

func (a *AuthController) issueToken(ctx *gin.Context, status int, user *models.User) {
	token, err := utils.GenerateToken(user.ID, user.Username, string(user.Role), utils.TokenTTL())
	if err != nil {
		utils.Logger.Error("generate token failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token": token,
		"user":  userResponse(user),
	})
}

func (a *AuthController) currentUser(ctx *gin.Context) (*models.User, bool) {
	userID := ctx.GetString(middleware.ContextUserIDKey)
	if userID == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return nil, false
	}
	user, err := a.store.FindUser(ctx.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
			return nil, false
		}
		utils.Logger.Error("load user failed", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load user")
		return nil, false
	}
	return user, true
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	base := strings.TrimRight(cfg.OAuthRedirectBase, "/")
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  base + "/api/auth/oauth/github/callback",
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  base + "/api/auth/oauth/google/callback",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type oauthUser struct {
	ID        string
	Username  string
	Email     string
	AvatarURL string
}

func (a *AuthController) fetchOAuthUser(ctx context.Context, provider string, token *oauth2.Token) (*oauthUser, error) {
	switch provider {
	case "github":
		var payload struct {
			ID        int64  `json:"id"`
			Login     string `json:"login"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := a.getJSON(ctx, "https://api.github.com/user", token, &payload); err != nil {
			return nil, err
		}
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		// the email scope may be declined; the profile is still usable
		_ = a.getJSON(ctx, "https://api.github.com/user/emails", token, &emails)
		email := ""
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
		return &oauthUser{
			ID:        fmt.Sprintf("%d", payload.ID),
			Username:  payload.Login,
			Email:     email,
			AvatarURL: payload.AvatarURL,
		}, nil
	case "google":
		var payload struct {
			ID      string `json:"id"`
			Email   string `json:"email"`
			Name    string `json:"name"`
			Picture string `json:"picture"`
		}
		if err := a.getJSON(ctx, "https://www.googleapis.com/oauth2/v2/userinfo", token, &payload); err != nil {
			return nil, err
		}
		username := payload.Name
		if at := strings.Index(payload.Email, "@"); at > 0 {
			username = payload.Email[:at]
		}
		return &oauthUser{
			ID:        payload.ID,
			Username:  username,
			Email:     payload.Email,
			AvatarURL: payload.Picture,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func (a *AuthController) getJSON(ctx context.Context, url string, token *oauth2.Token, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *AuthController) findOrCreateOAuthUser(ctx context.Context, provider string, info *oauthUser) (*models.User, error) {
	user, err := a.store.FindUserByProvider(ctx, provider, info.ID)
	if err == nil {
		changed := false
		if info.AvatarURL != "" && user.ProfileImage == "" {
			user.ProfileImage = info.AvatarURL
			changed = true
		}
		if info.Email != "" && user.Email == "" {
			user.Email = strings.ToLower(info.Email)
			changed = true
		}
		if changed {
			if err := a.store.UpdateUser(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	username, err := a.uniqueUsername(ctx, info.Username, provider, info.ID)
	if err != nil {
		return nil, err
	}
	user = &models.User{
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(info.Email)),
		Provider:     provider,
		ProviderID:   info.ID,
		ProfileImage: info.AvatarURL,
		Role:         models.RoleUser,
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *AuthController) uniqueUsername(ctx context.Context, base, provider, id string) (string, error) {
	base = sanitizeUsername(base)
	if len(base) < minUsernameLength {
		base = sanitizeUsername(provider + "_" + id)
	}
	if len(base) > maxUsernameLength-4 {
		base = base[:maxUsernameLength-4]
	}
	candidate := base
	for suffix := 1; suffix < 1000; suffix++ {
		_, err := a.store.FindUserByUsername(ctx, candidate)
		if errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
	}
	return "", fmt.Errorf("no free username for %q", base)
}

func sanitizeUsername(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var builder strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "_")
}

// validateUsername returns a message describing why username is unacceptable, or "".
func validateUsername(username string) string {
	if l := utf8.RuneCountInString(username); l < minUsernameLength || l > maxUsernameLength {
		return fmt.Sprintf("username must be %d-%d characters", minUsernameLength, maxUsernameLength)
	}
	for _, r := range username {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-' || r == '_' {
			continue
		}
		return "username may only contain letters, digits, '-' and '_'"
	}
	return ""
}

func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":            user.ID,
		"username":      user.Username,
		"email":         user.Email,
		"bio":           user.Bio,
		"profile_image": user.ProfileImage,
		"role":          middleware.EffectiveRole(string(user.Role), user.Username),
		"provider":      user.Provider,
		"created_at":    user.CreatedAt,
	}
}
