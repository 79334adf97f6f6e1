package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/bsgreeks/health"
	"github.com/wyfcoding/bsgreeks/logging"
	"github.com/wyfcoding/bsgreeks/metrics"
	"github.com/wyfcoding/bsgreeks/middleware"
	"github.com/wyfcoding/bsgreeks/server"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const healthPath = "/healthz"

// RouterOptions 组装 HTTP 引擎所需的依赖与治理参数。
type RouterOptions struct {
	ServiceName    string
	Logger         *logging.Logger
	Metrics        *metrics.Metrics // 为 nil 时不采集也不暴露 /metrics
	MetricsPath    string
	Tracing        bool
	MaxBodyBytes   int64
	RateLimitRPS   float64
	RateLimitBurst int
	RateLimitIdle  time.Duration // 闲置 IP 令牌桶的回收时长，0 使用默认值
	Checkers       map[string]health.Checker
}

// NewRouter 创建定价服务的 Gin 引擎。
// 全局中间件依次为 Recovery、追踪、RequestID、上下文注入、访问日志、指标和错误兜底；
// 限流与请求体大小限制只作用于 /v1 定价接口。
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	mws := []gin.HandlerFunc{middleware.Recovery(logger.Logger)}
	if opts.Tracing {
		mws = append(mws, otelgin.Middleware(opts.ServiceName))
	}
	mws = append(mws,
		middleware.RequestID(),
		middleware.RequestContextEnricher(),
		middleware.Logger(logger.Logger),
	)
	if opts.Metrics != nil {
		mws = append(mws, middleware.HTTPMetricsMiddlewareWithOptions(opts.Metrics, middleware.MetricsOptions{
			SkipPaths: []string{healthPath, opts.MetricsPath},
		}))
	}
	mws = append(mws, middleware.HTTPErrorHandler(logger.Logger))

	engine := server.NewDefaultGinEngine(mws...)

	checkers := opts.Checkers
	if checkers == nil {
		checkers = map[string]health.Checker{"engine": health.EngineChecker()}
	}
	engine.GET(healthPath, health.Handler(checkers))

	if opts.Metrics != nil && opts.MetricsPath != "" {
		engine.GET(opts.MetricsPath, gin.WrapH(opts.Metrics.Handler()))
	}

	v1 := engine.Group("",
		middleware.NewLocalRateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst, opts.RateLimitIdle),
		middleware.MaxBodyBytes(opts.MaxBodyBytes),
	)
	h.Register(v1)

	return engine
}
