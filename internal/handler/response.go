package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pochaneco/ai-Knowledge-api/internal/service"
)

// Response helpers

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

func Error(c *gin.Context, httpCode int, code int, message string) {
	c.JSON(httpCode, gin.H{
		"code":    code,
		"message": message,
		"data":    nil,
	})
}

func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, service.ErrForbidden.Code, service.ErrForbidden.Message)
}

func TooManyRequests(c *gin.Context) {
	Error(c, http.StatusTooManyRequests, 42901, "too many requests, try again later")
}

// Fail maps a service failure kind to its HTTP status. The first three
// digits of the code are the status; anything that is not a service.Error
// is reported as an internal error.
func Fail(c *gin.Context, err error) {
	var kind *service.Error
	if !errors.As(err, &kind) {
		Error(c, http.StatusInternalServerError, service.ErrInternal.Code, service.ErrInternal.Message)
		return
	}
	httpCode := kind.Code / 100
	if httpCode < 400 || httpCode > 599 {
		httpCode = http.StatusInternalServerError
	}
	Error(c, httpCode, kind.Code, kind.Message)
}

func parseID(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 64)
	return uint(id)
}
