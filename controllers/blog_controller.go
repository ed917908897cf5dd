package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devnovate/blog/config"
	"github.com/devnovate/blog/middleware"
	"github.com/devnovate/blog/services"
	"github.com/devnovate/blog/utils"
)

// BlogController serves the public and author facing blog endpoints.
type BlogController struct {
	blogs *services.BlogService
}

// NewBlogController creates a new BlogController instance.
func NewBlogController(blogs *services.BlogService) *BlogController {
	return &BlogController{blogs: blogs}
}

// ListBlogs returns a page of approved blogs.
func (b *BlogController) ListBlogs(ctx *gin.Context) {
	page, limit := parsePagination(ctx)
	q := services.ListQuery{
		Page:     page,
		Limit:    limit,
		Search:   strings.TrimSpace(ctx.Query("search")),
		Category: strings.TrimSpace(ctx.Query("category")),
		Sort:     strings.TrimSpace(ctx.Query("sort")),
	}

	// Search results are not cached to avoid cache key explosion
	cacheKey := ""
	if q.Search == "" {
		cacheKey = fmt.Sprintf("%scat=%s:sort=%s:page=%d:limit=%d", utils.CacheKeyBlogList, q.Category, q.Sort, page, limit)
		if utils.RespondCached(ctx, cacheKey) {
			return
		}
	}

	result, err := b.blogs.List(ctx.Request.Context(), q)
	if err != nil {
		respondServiceError(ctx, err, 50020)
		return
	}
	payload := pagePayload(result)
	if cacheKey == "" {
		utils.Success(ctx, payload)
		return
	}
	utils.SuccessCached(ctx, cacheKey, payload, time.Duration(config.Get().ListCacheSeconds)*time.Second)
}

// Trending returns the top approved blogs by engagement score.
func (b *BlogController) Trending(ctx *gin.Context) {
	if utils.RespondCached(ctx, utils.CacheKeyBlogTrending) {
		return
	}
	ranked, err := b.blogs.Trending(ctx.Request.Context())
	if err != nil {
		respondServiceError(ctx, err, 50021)
		return
	}
	ttl := time.Duration(config.Get().TrendingCacheSeconds) * time.Second
	utils.SuccessCached(ctx, utils.CacheKeyBlogTrending, gin.H{"blogs": ranked}, ttl)
}

// GetBlog returns one approved blog and counts the view.
func (b *BlogController) GetBlog(ctx *gin.Context) {
	post, err := b.blogs.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondServiceError(ctx, err, 50022)
		return
	}
	// views feed the trending score
	utils.CacheDelete(utils.CacheKeyBlogTrending)
	actor := middleware.CurrentActor(ctx)
	utils.Success(ctx, gin.H{
		"blog":     post,
		"is_liked": actor.Authenticated() && post.LikedBy(actor.UserID),
	})
}

// CreateBlog submits a new blog for review, or saves it as a draft.
func (b *BlogController) CreateBlog(ctx *gin.Context) {
	var req services.PostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	post, err := b.blogs.Create(ctx.Request.Context(), middleware.CurrentActor(ctx), req)
	if err != nil {
		respondServiceError(ctx, err, 50023)
		return
	}
	invalidateBlogCaches()
	utils.Created(ctx, "blog submitted for review", gin.H{"blog": post})
}

// UpdateBlog edits the caller's blog and resubmits it for review.
func (b *BlogController) UpdateBlog(ctx *gin.Context) {
	var req services.PostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}
	post, err := b.blogs.Update(ctx.Request.Context(), middleware.CurrentActor(ctx), ctx.Param("id"), req)
	if err != nil {
		respondServiceError(ctx, err, 50024)
		return
	}
	invalidateBlogCaches()
	utils.Respond(ctx, http.StatusOK, 0, "blog updated and resubmitted for review", gin.H{"blog": post})
}

// DeleteBlog removes the caller's blog.
func (b *BlogController) DeleteBlog(ctx *gin.Context) {
	if err := b.blogs.Delete(ctx.Request.Context(), middleware.CurrentActor(ctx), ctx.Param("id")); err != nil {
		respondServiceError(ctx, err, 50025)
		return
	}
	invalidateBlogCaches()
	utils.Success(ctx, gin.H{"message": "blog deleted"})
}

// ToggleLike likes or unlikes an approved blog.
func (b *BlogController) ToggleLike(ctx *gin.Context) {
	status, err := b.blogs.ToggleLike(ctx.Request.Context(), middleware.CurrentActor(ctx), ctx.Param("id"))
	if err != nil {
		respondServiceError(ctx, err, 50026)
		return
	}
	invalidateBlogCaches()
	utils.Success(ctx, status)
}

// AddComment appends a comment to an approved blog.
func (b *BlogController) AddComment(ctx *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}
	comment, err := b.blogs.AddComment(ctx.Request.Context(), middleware.CurrentActor(ctx), ctx.Param("id"), req.Text)
	if err != nil {
		respondServiceError(ctx, err, 50027)
		return
	}
	invalidateBlogCaches()
	utils.Created(ctx, "comment added", gin.H{"comment": comment})
}

// DeleteComment removes a comment. Allowed for the comment author and admins.
func (b *BlogController) DeleteComment(ctx *gin.Context) {
	err := b.blogs.DeleteComment(ctx.Request.Context(), middleware.CurrentActor(ctx), ctx.Param("id"), ctx.Param("commentId"))
	if err != nil {
		respondServiceError(ctx, err, 50028)
		return
	}
	invalidateBlogCaches()
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

// MyBlogs lists the caller's blogs in every status.
func (b *BlogController) MyBlogs(ctx *gin.Context) {
	page, limit := parsePagination(ctx)
	result, err := b.blogs.MyPosts(ctx.Request.Context(), middleware.CurrentActor(ctx), page, limit)
	if err != nil {
		respondServiceError(ctx, err, 50029)
		return
	}
	utils.Success(ctx, pagePayload(result))
}

// invalidateBlogCaches drops cached list and trending responses after a write.
func invalidateBlogCaches() {
	utils.InvalidateByPrefix(utils.CacheKeyBlogs)
}
