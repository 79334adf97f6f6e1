// Package middleware 提供了定价 HTTP 服务的通用 Gin 中间件.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/bsgreeks/contextx"
	"github.com/wyfcoding/bsgreeks/idgen"
)

const (
	HeaderXRequestID = "X-Request-ID"
)

// RequestID 返回一个用于生成或传递请求 ID 的 Gin 中间件。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = idgen.GenIDString()
		}

		c.Request = c.Request.WithContext(contextx.WithRequestID(c.Request.Context(), requestID))
		c.Header(HeaderXRequestID, requestID)

		c.Next()
	}
}
