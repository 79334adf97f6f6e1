package middleware

import (
	"log/slog"
	"time"

	"github.com/wyfcoding/bsgreeks/contextx"

	"github.com/gin-gonic/gin"
)

// Logger 访问日志中间件，trace_id/span_id 由 logging.TraceHandler 自动附加。
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		ctx := c.Request.Context()
		args := append(contextx.LogAttrs(ctx),
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"ip", c.ClientIP(),
			"cost", time.Since(start),
			"user_agent", c.Request.UserAgent(),
		)
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "HTTP Request", args...)
	}
}
