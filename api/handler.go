// Package api 提供期权定价的 HTTP 接口。
package api

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/bsgreeks/algorithm/finance"
	"github.com/wyfcoding/bsgreeks/algorithm/types"
	"github.com/wyfcoding/bsgreeks/contextx"
	"github.com/wyfcoding/bsgreeks/datetime"
	"github.com/wyfcoding/bsgreeks/logging"
	"github.com/wyfcoding/bsgreeks/metrics"
	"github.com/wyfcoding/bsgreeks/response"
	"github.com/wyfcoding/bsgreeks/tracing"
	"github.com/wyfcoding/bsgreeks/xerrors"
)

// ValuationRequest 定价请求，JSON 与查询参数共用。
// 数值字段用指针区分“未提供”与“提供了 0”，后者交给定价引擎按业务规则拒绝。
type ValuationRequest struct {
	OptionType     string   `json:"option_type"      form:"option_type"      binding:"required"`
	Spot           *float64 `json:"spot"             form:"spot"             binding:"required"`
	Strike         *float64 `json:"strike"           form:"strike"           binding:"required"`
	TimeToMaturity *float64 `json:"time_to_maturity" form:"time_to_maturity"`
	MaturityDate   string   `json:"maturity_date"    form:"maturity_date"`
	Rate           *float64 `json:"rate"             form:"rate"             binding:"required"`
	Volatility     *float64 `json:"volatility"       form:"volatility"       binding:"required"`
}

// ValuationResponse 定价结果，数值按展示精度四舍五入后以字符串输出。
type ValuationResponse struct {
	OptionType     types.OptionType `json:"option_type"`
	TimeToMaturity decimal.Decimal  `json:"time_to_maturity"`
	*finance.BlackScholesResult
}

// GreekResponse 单个希腊字母（或价格）的计算结果。
type GreekResponse struct {
	OptionType types.OptionType `json:"option_type"`
	Greek      string           `json:"greek"`
	Value      decimal.Decimal  `json:"value"`
}

// Handler 定价接口处理器，自身无可变状态，可被并发请求共享。
type Handler struct {
	calc    *finance.BlackScholesCalculator
	metrics *metrics.Metrics
	logger  *logging.Logger
	now     func() time.Time
	loc     *time.Location
}

// Option 配置 Handler。
type Option func(*Handler)

// WithClock 替换“今天”的来源，maturity_date 据此换算年化期限。
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithLocation 设置解析 maturity_date 与计算“今天”所用的时区。
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) { h.loc = loc }
}

// NewHandler 创建定价处理器，m 可以为 nil。
func NewHandler(calc *finance.BlackScholesCalculator, m *metrics.Metrics, logger *logging.Logger, opts ...Option) *Handler {
	h := &Handler{
		calc:    calc,
		metrics: m,
		logger:  logger,
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register 注册 /v1/options 路由。
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/v1/options")
	g.POST("/valuation", h.Valuation)
	g.GET("/greeks/:greek", h.Greek)
}

// Valuation POST /v1/options/valuation，一次返回价格与全部希腊字母。
func (h *Handler) Valuation(c *gin.Context) {
	var req ValuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reject(c, "", xerrors.ErrMalformedRequest.Clone().WithDetail("%v", err))
		return
	}

	p, err := h.params(&req)
	if err != nil {
		h.reject(c, req.OptionType, err)
		return
	}

	ctx, span := tracing.StartSpan(withOptionType(c, p.OptionType), "finance.Evaluate")
	defer span.End()
	defer logging.LogDuration(ctx, "finance.Evaluate", "option_type", p.OptionType.String())()
	tracing.AddTag(ctx, "option.type", p.OptionType.String())

	result, err := h.calc.Calculate(p)
	if err != nil {
		tracing.SetError(ctx, err)
		h.reject(c, p.OptionType.String(), err)
		return
	}

	h.metrics.ObserveValuation(p.OptionType.String(), nil)
	h.logger.DebugContext(ctx, "option valuated", "option_type", p.OptionType.String(), "price", result.Price.String())

	response.Success(c, ValuationResponse{
		OptionType:         p.OptionType,
		TimeToMaturity:     h.calc.Round(p.TimeToMaturity),
		BlackScholesResult: result,
	})
}

// Greek GET /v1/options/greeks/:greek，参数通过查询字符串传入。
func (h *Handler) Greek(c *gin.Context) {
	name := strings.ToLower(c.Param("greek"))
	fn, ok := h.greekFuncs()[name]
	if !ok {
		h.reject(c, "", xerrors.ErrUnknownGreek.Clone().WithContext("greek", c.Param("greek")))
		return
	}

	var req ValuationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.reject(c, "", xerrors.ErrMalformedRequest.Clone().WithDetail("%v", err))
		return
	}

	p, err := h.params(&req)
	if err != nil {
		h.reject(c, req.OptionType, err)
		return
	}

	ctx, span := tracing.StartSpan(withOptionType(c, p.OptionType), "finance."+name)
	defer span.End()
	tracing.AddTag(ctx, "option.type", p.OptionType.String())

	v, err := fn(p)
	if err != nil {
		tracing.SetError(ctx, err)
		h.reject(c, p.OptionType.String(), err)
		return
	}

	h.metrics.ObserveValuation(p.OptionType.String(), nil)
	response.Success(c, GreekResponse{OptionType: p.OptionType, Greek: name, Value: v})
}

func (h *Handler) greekFuncs() map[string]func(finance.OptionParameters) (decimal.Decimal, error) {
	return map[string]func(finance.OptionParameters) (decimal.Decimal, error){
		"price": h.calc.CalculatePrice,
		"delta": h.calc.CalculateDelta,
		"gamma": h.calc.CalculateGamma,
		"vega":  h.calc.CalculateVega,
		"theta": h.calc.CalculateTheta,
		"rho":   h.calc.CalculateRho,
	}
}

// params 把请求转换为引擎输入，maturity_date 按 Act/365 换算。
func (h *Handler) params(req *ValuationRequest) (finance.OptionParameters, error) {
	ot, err := types.ParseOptionType(req.OptionType)
	if err != nil {
		return finance.OptionParameters{}, err
	}

	hasT, hasDate := req.TimeToMaturity != nil, strings.TrimSpace(req.MaturityDate) != ""
	if hasT == hasDate {
		return finance.OptionParameters{}, xerrors.ErrMaturityUnspecified.Clone()
	}

	var t float64
	if hasT {
		t = *req.TimeToMaturity
	} else {
		maturity, err := datetime.ParseDate(req.MaturityDate, h.loc)
		if err != nil {
			return finance.OptionParameters{}, err
		}
		t = datetime.YearFraction(h.now().In(h.loc), maturity)
	}

	return finance.OptionParameters{
		Spot:           *req.Spot,
		Strike:         *req.Strike,
		TimeToMaturity: t,
		RiskFreeRate:   *req.Rate,
		Volatility:     *req.Volatility,
		OptionType:     ot,
	}, nil
}

// withOptionType 把期权类型写入请求 Context，访问日志与异常恢复日志据此带上 option_type。
func withOptionType(c *gin.Context, ot types.OptionType) context.Context {
	ctx := contextx.WithOptionType(c.Request.Context(), ot.String())
	c.Request = c.Request.WithContext(ctx)
	return ctx
}

func (h *Handler) reject(c *gin.Context, optionType string, err error) {
	label := "unknown"
	if ot, perr := types.ParseOptionType(optionType); perr == nil {
		label = ot.String()
	}
	h.metrics.ObserveValuation(label, err)
	h.logRejection(c.Request.Context(), label, err)
	_ = c.Error(err)
	response.Error(c, err)
}

func (h *Handler) logRejection(ctx context.Context, optionType string, err error) {
	args := []any{"option_type", optionType, "error", err.Error()}
	if xe, ok := xerrors.FromError(err); ok {
		args = append(args, "code", xe.Code)
		for k, v := range xe.Context {
			args = append(args, slog.Any(k, v))
		}
	}
	h.logger.WarnContext(ctx, "valuation rejected", args...)
}
