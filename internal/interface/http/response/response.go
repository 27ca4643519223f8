// Package response - единый JSON-конверт HTTP API движка.
package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/tutoring-backend/internal/logger"
	"github.com/ignatzorin/tutoring-backend/internal/pkg/apperror"
)

// Envelope - тело любого ответа. Для списков заполнены Limit, Offset и Count.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Limit   *int       `json:"limit,omitempty"`
	Offset  *int       `json:"offset,omitempty"`
	Count   *int       `json:"count,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// List отдаёт страницу. Пустая страница сериализуется как [], а не null.
func List[T any](c *gin.Context, items []T, limit, offset int) {
	if items == nil {
		items = []T{}
	}
	count := len(items)
	c.JSON(http.StatusOK, Envelope{Success: true, Data: items, Limit: &limit, Offset: &offset, Count: &count})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error переводит ошибку сервиса в ответ. Клиентские AppError отдаются как есть,
// остальное логируется и скрывается за кодом INTERNAL_ERROR.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
		writeError(c, appErr.HTTPStatus, appErr.Code, appErr.Message)
		return
	}

	// клиент ушёл, отвечать уже некому
	if errors.Is(err, context.Canceled) {
		c.Abort()
		return
	}

	code := apperror.ErrCodeInternal
	if appErr != nil {
		code = appErr.Code
	}
	logger.Component("http").WithFields(logrus.Fields{
		"code":   code,
		"path":   c.FullPath(),
		"method": c.Request.Method,
	}).WithError(err).Error("ошибка обработки запроса")

	writeError(c, http.StatusInternalServerError, code, "внутренняя ошибка сервера")
}

func BadRequest(c *gin.Context, message string) {
	writeError(c, http.StatusBadRequest, apperror.ErrCodeBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	writeError(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	writeError(c, http.StatusForbidden, apperror.ErrCodeForbidden, message)
}

func TooManyRequests(c *gin.Context, message string) {
	writeError(c, http.StatusTooManyRequests, apperror.ErrCodeBadRequest, message)
}

func writeError(c *gin.Context, status int, code apperror.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &ErrorInfo{Code: string(code), Message: message},
	})
}
