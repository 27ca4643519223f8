// Package common - разбор запроса, общий для всех хендлеров движка.
package common

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/tutoring-backend/internal/domain/valueobject"
	"github.com/ignatzorin/tutoring-backend/internal/http/middleware"
	"github.com/ignatzorin/tutoring-backend/internal/interface/http/response"
	"github.com/ignatzorin/tutoring-backend/internal/service"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// RequireUser возвращает пользователя из токена или отвечает 401.
func RequireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(middleware.ContextUserIDKey)
	if id, isUUID := userID.(uuid.UUID); ok && isUUID && id != uuid.Nil {
		return id, true
	}
	response.Unauthorized(c, "требуется авторизация")
	return uuid.Nil, false
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(middleware.ContextRoleKey) == service.RoleAdmin
}

// CurrentActor - администратор действует в обход пользовательских окон.
func CurrentActor(c *gin.Context) valueobject.Actor {
	if IsAdmin(c) {
		return valueobject.ActorAdmin
	}
	return valueobject.ActorUser
}

// UUIDParam читает идентификатор из пути или отвечает 400.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "параметр "+name+" должен быть UUID")
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON разбирает тело запроса или отвечает 400.
func BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, "ошибка валидации запроса: "+err.Error())
		return false
	}
	return true
}

// ParseTimeQuery читает параметр в RFC3339 и приводит его к UTC.
func ParseTimeQuery(c *gin.Context, key string, fallback time.Time) (time.Time, bool) {
	v := c.Query(key)
	if v == "" {
		return fallback, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		response.BadRequest(c, "параметр "+key+" должен быть в формате RFC3339")
		return time.Time{}, false
	}
	return t.UTC(), true
}

// GetPagination возвращает limit в пределах [1, 100] и неотрицательный offset.
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = intQuery(c, "limit", defaultLimit)
	offset = intQuery(c, "offset", 0)
	if limit < 1 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	offset = max(offset, 0)
	return limit, offset
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if n, err := strconv.Atoi(c.Query(key)); err == nil {
		return n
	}
	return fallback
}
