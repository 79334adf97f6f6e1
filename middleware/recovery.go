package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/wyfcoding/bsgreeks/contextx"
	"github.com/wyfcoding/bsgreeks/response"

	"github.com/gin-gonic/gin"
)

// Recovery 结构化异常恢复中间件。
// 日志带上请求 ID 与正在定价的期权类型，响应中回显请求 ID 便于排查。
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				ctx := c.Request.Context()
				args := append(contextx.LogAttrs(ctx),
					"error", err,
					"method", c.Request.Method,
					"route", c.FullPath(),
					"query", c.Request.URL.RawQuery,
					"stack", string(debug.Stack()),
				)
				logger.ErrorContext(ctx, "panic recovered during pricing request", args...)

				detail := "An unexpected error occurred"
				if rid := contextx.GetRequestID(ctx); rid != "" {
					detail = fmt.Sprintf("%s (request_id=%s)", detail, rid)
				}
				response.ErrorWithStatus(c, http.StatusInternalServerError, "Internal Server Error", detail)
				c.Abort()
			}
		}()
		c.Next()
	}
}
