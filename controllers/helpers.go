package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/devnovate/blog/services"
	"github.com/devnovate/blog/utils"
)

// parsePagination reads page and limit, accepting page_size as an alias for limit.
// Values are normalized by services.NormalizePage.
func parsePagination(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.Query("page"))
	limitStr := ctx.Query("limit")
	if limitStr == "" {
		limitStr = ctx.Query("page_size")
	}
	limit, _ := strconv.Atoi(limitStr)
	return services.NormalizePage(page, limit)
}

func pagePayload(p *services.PostPage) gin.H {
	totalPages := p.TotalPages()
	return gin.H{
		"blogs": p.Items,
		"pagination": gin.H{
			"current_page": p.Page,
			"limit":        p.Limit,
			"total_pages":  totalPages,
			"total_blogs":  p.Total,
			"has_next":     p.Page < totalPages,
			"has_prev":     p.Page > 1,
		},
	}
}

// respondServiceError maps service errors onto HTTP statuses. Unknown errors are logged and
// reported as an opaque 500 with internalCode.
func respondServiceError(ctx *gin.Context, err error, internalCode int) {
	var (
		verr *services.ValidationError
		terr *services.TransitionError
	)
	switch {
	case errors.As(err, &verr):
		utils.Error(ctx, http.StatusBadRequest, 40010, verr.Message)
	case errors.As(err, &terr):
		utils.Error(ctx, http.StatusBadRequest, 40011, terr.Error())
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidTransition):
		utils.Error(ctx, http.StatusBadRequest, 40012, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		utils.Error(ctx, http.StatusUnauthorized, 40108, "authentication required")
	case errors.Is(err, services.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40310, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40410, err.Error())
	default:
		utils.Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, internalCode, "internal server error")
	}
}
