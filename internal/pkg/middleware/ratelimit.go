package middleware

import (
	"net/http"
	"sync"
	"time"

	"coupon_engine/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter 按用户（未登录时按 IP）限流
type KeyedRateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	r        rate.Limit
	b        int
	idle     time.Duration
}

// NewKeyedRateLimiter 创建限流器
// r: 每秒允许的请求数 (QPS)
// b: 桶的大小 (Burst)
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		visitors: make(map[string]*visitor),
		r:        r,
		b:        b,
		idle:     10 * time.Minute,
	}
}

// GetLimiter 获取指定 key 的限流器，顺带清理长时间未访问的 key
func (l *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	v, exists := l.visitors[key]
	if !exists {
		if len(l.visitors) > 1024 {
			l.evictLocked(now)
		}
		v = &visitor{limiter: rate.NewLimiter(l.r, l.b)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (l *KeyedRateLimiter) evictLocked(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, k)
		}
	}
}

// Middleware 限流中间件，limit 为 0 时不限流
func (l *KeyedRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.r == 0 {
			c.Next()
			return
		}

		key := CurrentUserID(c)
		if key == "" {
			key = c.ClientIP()
		}
		if !l.GetLimiter(key).Allow() {
			response.Error(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
