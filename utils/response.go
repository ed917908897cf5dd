package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// JSONResponse is the envelope every endpoint answers with. Code 0 means success.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Created answers 201 with a message describing what was created.
func Created(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, http.StatusCreated, 0, message, data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// RespondCached replays a success envelope stored under key. It reports false on a cache miss.
func RespondCached(ctx *gin.Context, key string) bool {
	body, ok := CacheGetBytes(key)
	if !ok {
		return false
	}
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
	return true
}

// SuccessCached writes a success response and stores its envelope under key for ttl.
func SuccessCached(ctx *gin.Context, key string, data interface{}, ttl time.Duration) {
	CacheSetJSON(key, JSONResponse{Code: 0, Message: "success", Data: data}, ttl)
	Success(ctx, data)
}
