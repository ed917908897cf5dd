package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devnovate/blog/middleware"
	"github.com/devnovate/blog/services"
	"github.com/devnovate/blog/utils"
)

// AdminController exposes moderation endpoints. Routes are mounted behind AdminRequired.
type AdminController struct {
	blogs *services.BlogService
}

func NewAdminController(blogs *services.BlogService) *AdminController {
	return &AdminController{blogs: blogs}
}

// Dashboard returns moderation counters and the most recent pending blogs.
func (a *AdminController) Dashboard(ctx *gin.Context) {
	d, err := a.blogs.Dashboard(ctx.Request.Context(), middleware.CurrentActor(ctx))
	if err != nil {
		respondServiceError(ctx, err, 50040)
		return
	}
	utils.Success(ctx, d)
}

// ListBlogs lists blogs of any status.
func (a *AdminController) ListBlogs(ctx *gin.Context) {
	page, limit := parsePagination(ctx)
	result, err := a.blogs.AdminList(ctx.Request.Context(), middleware.CurrentActor(ctx), ctx.Query("status"), page, limit)
	if err != nil {
		respondServiceError(ctx, err, 50041)
		return
	}
	utils.Success(ctx, pagePayload(result))
}

func (a *AdminController) Approve(ctx *gin.Context) {
	post, err := a.blogs.Approve(ctx.Request.Context(), middleware.CurrentActor(ctx), ctx.Param("id"))
	if err != nil {
		respondServiceError(ctx, err, 50042)
		return
	}
	invalidateBlogCaches()
	utils.Respond(ctx, http.StatusOK, 0, "blog approved", gin.H{"blog": post})
}

func (a *AdminController) Reject(ctx *gin.Context) {
	var req struct {
		Feedback string `json:"feedback"`
	}
	// An empty body rejects without feedback
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
			return
		}
	}
	post, err := a.blogs.Reject(ctx.Request.Context(), middleware.CurrentActor(ctx), ctx.Param("id"), req.Feedback)
	if err != nil {
		respondServiceError(ctx, err, 50043)
		return
	}
	invalidateBlogCaches()
	utils.Respond(ctx, http.StatusOK, 0, "blog rejected", gin.H{"blog": post})
}

func (a *AdminController) Hide(ctx *gin.Context) {
	post, err := a.blogs.Hide(ctx.Request.Context(), middleware.CurrentActor(ctx), ctx.Param("id"))
	if err != nil {
		respondServiceError(ctx, err, 50044)
		return
	}
	invalidateBlogCaches()
	utils.Respond(ctx, http.StatusOK, 0, "blog hidden", gin.H{"blog": post})
}

func (a *AdminController) Delete(ctx *gin.Context) {
	if err := a.blogs.Delete(ctx.Request.Context(), middleware.CurrentActor(ctx), ctx.Param("id")); err != nil {
		respondServiceError(ctx, err, 50045)
		return
	}
	invalidateBlogCaches()
	utils.Success(ctx, gin.H{"message": "blog deleted"})
}
