// Package finance - 欧式期权 Black-Scholes 定价与希腊字母。
//
// 所有导出函数均为纯函数：只读取传入的 OptionParameters，不缓存、不修改任何状态，
// 可在任意多个 goroutine 中并发调用。参数校验在任何超越函数求值之前完成，
// 中间量与结果在返回前再检查一次有限性。非法输入一律返回 xerrors.ErrInvalidArg
// 大类的错误，绝不返回 NaN 或无穷大。
package finance

import (
	"math"
	"strconv"

	"github.com/wyfcoding/bsgreeks/algorithm/types"
	"github.com/wyfcoding/bsgreeks/xerrors"
	"gonum.org/v1/gonum/stat/distuv"
)

// OptionParameters 单次定价的全部输入，按值传递。
type OptionParameters struct {
	Spot           float64          `json:"spot"`             // 标的资产现价，> 0
	Strike         float64          `json:"strike"`           // 行权价，> 0
	TimeToMaturity float64          `json:"time_to_maturity"` // 剩余期限（年），> 0
	RiskFreeRate   float64          `json:"risk_free_rate"`   // 连续复利无风险利率
	Volatility     float64          `json:"volatility"`       // 年化波动率，> 0
	OptionType     types.OptionType `json:"option_type"`
}

// Greeks 五个一阶/二阶敏感度。Theta 以年为单位，与 TimeToMaturity 一致。
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// Valuation 期权理论价格及其希腊字母。
type Valuation struct {
	Price float64 `json:"price"`
	Greeks
}

// stdNormal 标准正态分布，CDF 基于 math.Erfc 实现，尾部精度优于 1-Erf 形式。
var stdNormal = distuv.UnitNormal

// terms 由输入推导出的中间量，每次调用重新计算。
type terms struct {
	d1       float64
	d2       float64
	sqrtT    float64
	discount float64 // e^{-rT}
}

// terms 推导中间量。σ√T 下溢为 0 或 e^{-rT} 上溢时返回 ErrDegenerateInput。
func (p OptionParameters) terms() (terms, error) {
	sqrtT := math.Sqrt(p.TimeToMaturity)
	volSqrtT := p.Volatility * sqrtT
	if volSqrtT == 0 {
		return terms{}, degenerate("vol_sqrt_t", volSqrtT)
	}
	d1 := (math.Log(p.Spot/p.Strike) + (p.RiskFreeRate+0.5*p.Volatility*p.Volatility)*p.TimeToMaturity) / volSqrtT
	t := terms{
		d1:       d1,
		d2:       d1 - volSqrtT,
		sqrtT:    sqrtT,
		discount: math.Exp(-p.RiskFreeRate * p.TimeToMaturity),
	}
	if err := checkFinite([]named{{"d1", t.d1}, {"d2", t.d2}, {"discount", t.discount}}); err != nil {
		return terms{}, err
	}
	return t, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type named struct {
	name string
	v    float64
}

// checkFinite 返回第一个非有限值对应的错误。
func checkFinite(vals []named) error {
	for _, n := range vals {
		if !finite(n.v) {
			return degenerate(n.name, n.v)
		}
	}
	return nil
}

func degenerate(term string, v float64) error {
	return xerrors.ErrDegenerateInput.Clone().WithContext("term", term).WithContext("value", formatFloat(v))
}

// formatFloat 非有限值无法编码为 JSON，统一以字符串写入错误上下文。
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// compute 校验输入、推导中间量并检查单个结果是否有限。
func compute(p OptionParameters, typed bool, name string, fn func(OptionParameters, terms) float64) (float64, error) {
	check := p.validate
	if typed {
		check = p.validateTyped
	}
	if err := check(); err != nil {
		return 0, err
	}
	t, err := p.terms()
	if err != nil {
		return 0, err
	}
	v := fn(p, t)
	if err := checkFinite([]named{{name, v}}); err != nil {
		return 0, err
	}
	return v, nil
}

// validate 校验数值输入，不检查期权类型。
func (p OptionParameters) validate() error {
	for _, f := range []named{
		{"spot", p.Spot},
		{"strike", p.Strike},
		{"time_to_maturity", p.TimeToMaturity},
		{"risk_free_rate", p.RiskFreeRate},
		{"volatility", p.Volatility},
	} {
		if !finite(f.v) {
			return xerrors.ErrNonFiniteInput.Clone().WithContext(f.name, formatFloat(f.v))
		}
	}

	switch {
	case p.Spot <= 0:
		return xerrors.ErrNonPositiveSpot.Clone().WithContext("spot", p.Spot)
	case p.Strike <= 0:
		return xerrors.ErrNonPositiveStrike.Clone().WithContext("strike", p.Strike)
	case p.TimeToMaturity <= 0:
		return xerrors.ErrNonPositiveMaturity.Clone().WithContext("time_to_maturity", p.TimeToMaturity)
	case p.Volatility <= 0:
		return xerrors.ErrNonPositiveVolatility.Clone().WithContext("volatility", p.Volatility)
	}
	return nil
}

// validateTyped 在 validate 基础上要求期权类型为 CALL 或 PUT。
func (p OptionParameters) validateTyped() error {
	if err := p.validate(); err != nil {
		return err
	}
	if !p.OptionType.Valid() {
		return xerrors.ErrInvalidOptionType.Clone().WithContext("option_type", string(p.OptionType))
	}
	return nil
}

// Price 计算欧式期权的 Black-Scholes 理论价格。
func Price(p OptionParameters) (float64, error) {
	return compute(p, true, "price", price)
}

// Delta 期权价格对标的价格的一阶导数。看涨 ∈ (0,1)，看跌 ∈ (-1,0)。
func Delta(p OptionParameters) (float64, error) {
	return compute(p, true, "delta", delta)
}

// Gamma 期权价格对标的价格的二阶导数，与期权类型无关，因此不读取 OptionType。
func Gamma(p OptionParameters) (float64, error) {
	return compute(p, false, "gamma", gamma)
}

// Vega 期权价格对波动率的导数（波动率变动 1.0 而非 1%），与期权类型无关。
func Vega(p OptionParameters) (float64, error) {
	return compute(p, false, "vega", vega)
}

// Theta 期权价格对时间流逝的导数，按年计。
func Theta(p OptionParameters) (float64, error) {
	return compute(p, true, "theta", theta)
}

// Rho 期权价格对无风险利率的导数（利率变动 1.0 而非 1%）。
func Rho(p OptionParameters) (float64, error) {
	return compute(p, true, "rho", rho)
}

// Sensitivities 一次性计算全部五个希腊字母，d1/d2 只计算一次。
func Sensitivities(p OptionParameters) (Greeks, error) {
	v, err := Evaluate(p)
	if err != nil {
		return Greeks{}, err
	}
	return v.Greeks, nil
}

// Evaluate 一次性计算价格与全部希腊字母，任一结果非有限时整体拒绝。
func Evaluate(p OptionParameters) (Valuation, error) {
	if err := p.validateTyped(); err != nil {
		return Valuation{}, err
	}
	t, err := p.terms()
	if err != nil {
		return Valuation{}, err
	}
	v := Valuation{Price: price(p, t), Greeks: greeks(p, t)}
	if err := checkFinite([]named{
		{"price", v.Price},
		{"delta", v.Delta},
		{"gamma", v.Gamma},
		{"vega", v.Vega},
		{"theta", v.Theta},
		{"rho", v.Rho},
	}); err != nil {
		return Valuation{}, err
	}
	return v, nil
}

func greeks(p OptionParameters, t terms) Greeks {
	return Greeks{
		Delta: delta(p, t),
		Gamma: gamma(p, t),
		Vega:  vega(p, t),
		Theta: theta(p, t),
		Rho:   rho(p, t),
	}
}

// 以下内部函数假定 p 已通过校验；OptionType 只可能是 CALL 或 PUT。

func price(p OptionParameters, t terms) float64 {
	if p.OptionType == types.OptionTypeCall {
		return p.Spot*stdNormal.CDF(t.d1) - p.Strike*t.discount*stdNormal.CDF(t.d2)
	}
	return p.Strike*t.discount*stdNormal.CDF(-t.d2) - p.Spot*stdNormal.CDF(-t.d1)
}

func delta(p OptionParameters, t terms) float64 {
	if p.OptionType == types.OptionTypeCall {
		return stdNormal.CDF(t.d1)
	}
	return stdNormal.CDF(t.d1) - 1
}

func gamma(p OptionParameters, t terms) float64 {
	return stdNormal.Prob(t.d1) / (p.Spot * p.Volatility * t.sqrtT)
}

func vega(p OptionParameters, t terms) float64 {
	return p.Spot * stdNormal.Prob(t.d1) * t.sqrtT
}

func theta(p OptionParameters, t terms) float64 {
	decay := -(p.Spot * stdNormal.Prob(t.d1) * p.Volatility) / (2 * t.sqrtT)
	if p.OptionType == types.OptionTypeCall {
		return decay - p.RiskFreeRate*p.Strike*t.discount*stdNormal.CDF(t.d2)
	}
	return decay + p.RiskFreeRate*p.Strike*t.discount*stdNormal.CDF(-t.d2)
}

func rho(p OptionParameters, t terms) float64 {
	if p.OptionType == types.OptionTypeCall {
		return p.Strike * p.TimeToMaturity * t.discount * stdNormal.CDF(t.d2)
	}
	return -p.Strike * p.TimeToMaturity * t.discount * stdNormal.CDF(-t.d2)
}
