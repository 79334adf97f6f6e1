package middleware

import (
	"github.com/wyfcoding/bsgreeks/contextx"

	"github.com/gin-gonic/gin"
)

// RequestContextEnricher 把客户端 IP 注入请求 Context。
func RequestContextEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(contextx.WithIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
