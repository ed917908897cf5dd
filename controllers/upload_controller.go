package controllers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devnovate/blog/middleware"
	"github.com/devnovate/blog/storage"
	"github.com/devnovate/blog/utils"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// UploadController stores featured and profile images.
type UploadController struct {
	storage  storage.Storage
	maxBytes int64
}

func NewUploadController(st storage.Storage, maxMB int) *UploadController {
	if maxMB <= 0 {
		maxMB = 5
	}
	return &UploadController{storage: st, maxBytes: int64(maxMB) << 20}
}

// UploadImage accepts a multipart "image" (or "file") field and returns its public URL.
func (u *UploadController) UploadImage(ctx *gin.Context) {
	actor := middleware.CurrentActor(ctx)

	file, header, err := ctx.Request.FormFile("image")
	if err != nil {
		file, header, err = ctx.Request.FormFile("file")
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40050, "no file uploaded")
			return
		}
	}
	defer file.Close()

	if header.Size > u.maxBytes {
		utils.Error(ctx, http.StatusBadRequest, 40051, fmt.Sprintf("file size exceeds %dMB", u.maxBytes>>20))
		return
	}
	// Enforce the limit on the stream too; header.Size is client supplied
	data, err := io.ReadAll(io.LimitReader(file, u.maxBytes+1))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40052, "failed to read upload")
		return
	}
	if int64(len(data)) > u.maxBytes {
		utils.Error(ctx, http.StatusBadRequest, 40051, fmt.Sprintf("file size exceeds %dMB", u.maxBytes>>20))
		return
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40053, "only image files are allowed")
		return
	}

	key := path.Join("images", time.Now().UTC().Format("2006/01/02"), uuid.NewString()+ext)
	if err := u.storage.Upload(ctx.Request.Context(), key, bytes.NewReader(data), contentType); err != nil {
		utils.Logger.Error("upload failed", zap.String("key", key), zap.String("user_id", actor.UserID), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to store file")
		return
	}

	utils.Created(ctx, "image uploaded", gin.H{
		"url":          u.storage.URL(key),
		"key":          key,
		"content_type": contentType,
		"size":         len(data),
		"filename":     strings.TrimSpace(header.Filename),
	})
}
