package handler

import (
	"context"
	"net/http"
	"time"

	"coupon_engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandler 存活检查，依次探测数据库和 Redis
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb}
}

// Health 健康检查
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"database": "ok"}
	healthy := true

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status["database"] = "unavailable"
		healthy = false
	}

	if h.redis != nil {
		status["redis"] = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			// 缓存不可用时仍可降级到数据库
			status["redis"] = "degraded"
		}
	}

	if !healthy {
		response.ErrorWithData(c, http.StatusServiceUnavailable, response.ErrServerInternal, "unhealthy", status)
		return
	}
	response.Success(c, status)
}
