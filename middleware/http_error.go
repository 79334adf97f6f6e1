package middleware

import (
	"log/slog"

	"github.com/wyfcoding/bsgreeks/contextx"
	"github.com/wyfcoding/bsgreeks/response"
	"github.com/wyfcoding/bsgreeks/xerrors"

	"github.com/gin-gonic/gin"
)

// HTTPErrorHandler 统一输出处理器通过 c.Error 登记但尚未写出的错误，
// 并记录业务码与请求上下文（request_id、option_type 等）。
func HTTPErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		ctx := c.Request.Context()
		args := append(contextx.LogAttrs(ctx), "route", c.FullPath(), "error", err.Error())
		if xe, ok := xerrors.FromError(err); ok {
			args = append(args, "code", xe.Code)
		}
		logger.WarnContext(ctx, "unwritten handler error", args...)

		response.Error(c, err)
	}
}
