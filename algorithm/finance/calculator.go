package finance

import (
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/bsgreeks/algorithm/types"
)

// DefaultPlaces 对外展示时保留的小数位数。
const DefaultPlaces int32 = 4

// BlackScholesCalculator 面向 decimal 的定价计算器。
// 内部统一转换为 float64 调用 Evaluate 等纯函数，结果按 places 位四舍五入。
type BlackScholesCalculator struct {
	places int32
}

// NewBlackScholesCalculator 创建 Black-Scholes 计算器，places <= 0 时使用 DefaultPlaces。
func NewBlackScholesCalculator(places int32) *BlackScholesCalculator {
	if places <= 0 {
		places = DefaultPlaces
	}
	return &BlackScholesCalculator{places: places}
}

// BlackScholesResult 包含计算出的期权价格及其希腊字母。
type BlackScholesResult struct {
	Price decimal.Decimal `json:"price"`
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Vega  decimal.Decimal `json:"vega"`
	Theta decimal.Decimal `json:"theta"`
	Rho   decimal.Decimal `json:"rho"`
}

// Params 把 decimal 输入组装为 OptionParameters。
func Params(optionType types.OptionType, spot, strike, expiry, rate, vol decimal.Decimal) OptionParameters {
	return OptionParameters{
		Spot:           spot.InexactFloat64(),
		Strike:         strike.InexactFloat64(),
		TimeToMaturity: expiry.InexactFloat64(),
		RiskFreeRate:   rate.InexactFloat64(),
		Volatility:     vol.InexactFloat64(),
		OptionType:     optionType,
	}
}

// Round 按计算器精度把 float64 转为 decimal。
func (bsc *BlackScholesCalculator) Round(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(bsc.places)
}

// Calculate 一次性计算期权价格及所有希腊字母。
func (bsc *BlackScholesCalculator) Calculate(p OptionParameters) (*BlackScholesResult, error) {
	v, err := Evaluate(p)
	if err != nil {
		return nil, err
	}
	return &BlackScholesResult{
		Price: bsc.Round(v.Price),
		Delta: bsc.Round(v.Delta),
		Gamma: bsc.Round(v.Gamma),
		Vega:  bsc.Round(v.Vega),
		Theta: bsc.Round(v.Theta),
		Rho:   bsc.Round(v.Rho),
	}, nil
}

// CalculatePrice 计算期权价格。
func (bsc *BlackScholesCalculator) CalculatePrice(p OptionParameters) (decimal.Decimal, error) {
	return bsc.single(Price, p)
}

// CalculateDelta 计算 Delta。
func (bsc *BlackScholesCalculator) CalculateDelta(p OptionParameters) (decimal.Decimal, error) {
	return bsc.single(Delta, p)
}

// CalculateGamma 计算 Gamma。
func (bsc *BlackScholesCalculator) CalculateGamma(p OptionParameters) (decimal.Decimal, error) {
	return bsc.single(Gamma, p)
}

// CalculateVega 计算 Vega。
func (bsc *BlackScholesCalculator) CalculateVega(p OptionParameters) (decimal.Decimal, error) {
	return bsc.single(Vega, p)
}

// CalculateTheta 计算 Theta（每年）。
func (bsc *BlackScholesCalculator) CalculateTheta(p OptionParameters) (decimal.Decimal, error) {
	return bsc.single(Theta, p)
}

// CalculateRho 计算 Rho。
func (bsc *BlackScholesCalculator) CalculateRho(p OptionParameters) (decimal.Decimal, error) {
	return bsc.single(Rho, p)
}

func (bsc *BlackScholesCalculator) single(fn func(OptionParameters) (float64, error), p OptionParameters) (decimal.Decimal, error) {
	v, err := fn(p)
	if err != nil {
		return decimal.Zero, err
	}
	return bsc.Round(v), nil
}

// Places 返回结果保留的小数位数。
func (bsc *BlackScholesCalculator) Places() int32 {
	return bsc.places
}
