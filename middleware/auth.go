package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devnovate/blog/config"
	"github.com/devnovate/blog/models"
	"github.com/devnovate/blog/services"
	"github.com/devnovate/blog/store"
	"github.com/devnovate/blog/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextRoleKey stores the effective role inside Gin context.
	ContextRoleKey = "role"
	// ContextTokenKey stores the raw bearer token for logout.
	ContextTokenKey = "token"
)

// UserFinder loads the account behind a token.
type UserFinder interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
}

// AuthRequired ensures the request is authenticated via JWT. The caller's username and role
// come from the stored account, so a role change applies to tokens already issued.
func AuthRequired(users UserFinder) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		user, err := users.FindUser(ctx.Request.Context(), claims.UserID)
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusUnauthorized, 40107, "account not found")
			ctx.Abort()
			return
		}
		if err != nil {
			utils.Sugar.Errorf("auth user lookup failed id=%s err=%v", claims.UserID, err)
			utils.Error(ctx, http.StatusInternalServerError, 50007, "failed to load account")
			ctx.Abort()
			return
		}

		setIdentity(ctx, user, tokenString)
		ctx.Next()
	}
}

// OptionalAuth records the caller when a valid token for an existing account is present.
// It never rejects the request.
func OptionalAuth(users UserFinder) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if tokenString, ok := bearerToken(ctx.GetHeader("Authorization")); ok && tokenString != "" {
			if !utils.IsTokenBlacklisted(tokenString) {
				if claims, err := utils.ParseToken(tokenString); err == nil {
					if user, err := users.FindUser(ctx.Request.Context(), claims.UserID); err == nil {
						setIdentity(ctx, user, tokenString)
					}
				}
			}
		}
		ctx.Next()
	}
}

// AdminRequired rejects authenticated callers without the admin role. Use after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !CurrentActor(ctx).IsAdmin() {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin access required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// CurrentActor returns the caller recorded by the auth middleware, or an anonymous actor.
func CurrentActor(ctx *gin.Context) services.Actor {
	return services.Actor{
		UserID:   ctx.GetString(ContextUserIDKey),
		Username: ctx.GetString(ContextUsernameKey),
		Role:     models.Role(ctx.GetString(ContextRoleKey)),
	}
}

// EffectiveRole grants admin to users whose role says so or whose username is configured as admin.
func EffectiveRole(role, username string) models.Role {
	if models.Role(role) == models.RoleAdmin || config.Get().IsAdminUsername(username) {
		return models.RoleAdmin
	}
	return models.RoleUser
}

func setIdentity(ctx *gin.Context, user *models.User, token string) {
	ctx.Set(ContextUserIDKey, user.ID)
	ctx.Set(ContextUsernameKey, user.Username)
	ctx.Set(ContextRoleKey, string(EffectiveRole(string(user.Role), user.Username)))
	ctx.Set(ContextTokenKey, token)
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
