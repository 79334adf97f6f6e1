package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/bsgreeks/limiter"
	"github.com/wyfcoding/bsgreeks/response"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware 以客户端 IP 作为限流标识。
func RateLimitMiddleware(l limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		allowed, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			// fail-open
			slog.ErrorContext(c.Request.Context(), "rate limiter internal error, fail-open applied", "key", key, "error", err)
			c.Next()
			return
		}

		if !allowed {
			slog.WarnContext(c.Request.Context(), "request rejected by rate limiter", "key", key, "path", c.Request.URL.Path)
			response.ErrorWithStatus(c, http.StatusTooManyRequests, "too many requests", "access rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}

// NewLocalRateLimitMiddleware 创建按 IP 隔离的本地令牌桶限流中间件，闲置 IP 的桶按 idleTTL 回收。
// rps <= 0 时返回直通中间件。
func NewLocalRateLimitMiddleware(rps float64, burst int, idleTTL time.Duration) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = int(rps) + 1
	}
	return RateLimitMiddleware(limiter.NewKeyedLimiter(rate.Limit(rps), burst, limiter.WithIdleTTL(idleTTL)))
}
