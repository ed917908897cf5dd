package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devnovate/blog/storage"
	"github.com/devnovate/blog/store"
	"github.com/devnovate/blog/utils"
)

// HealthController reports the state of the store and optional backends.
type HealthController struct {
	store   store.Store
	storage storage.Storage
}

func NewHealthController(st store.Store, files storage.Storage) *HealthController {
	return &HealthController{store: st, storage: files}
}

// Health returns 200 when the store is reachable and 503 otherwise.
// Redis and object storage problems only degrade the status.
func (h *HealthController) Health(ctx *gin.Context) {
	c, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := "ok"

	if err := h.store.Ping(c); err != nil {
		checks["store"] = "unhealthy"
		status = "unhealthy"
	} else {
		checks["store"] = "ok"
	}

	if utils.GetRedis() == nil {
		checks["redis"] = "skipped"
	} else if err := utils.PingRedis(c); err != nil {
		checks["redis"] = "unhealthy"
		status = degrade(status)
	} else {
		checks["redis"] = "ok"
	}

	if h.storage == nil {
		checks["storage"] = "skipped"
	} else if _, err := h.storage.Exists(c, "__health__"); err != nil {
		checks["storage"] = "unhealthy"
		status = degrade(status)
	} else {
		checks["storage"] = "ok"
	}

	code, bizCode := http.StatusOK, 0
	if status == "unhealthy" {
		code, bizCode = http.StatusServiceUnavailable, 50300
	}
	utils.Respond(ctx, code, bizCode, status, gin.H{"status": status, "checks": checks})
}

func degrade(status string) string {
	if status == "ok" {
		return "degraded"
	}
	return status
}
