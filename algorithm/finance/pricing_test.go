package finance

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/bsgreeks/algorithm/types"
	"github.com/wyfcoding/bsgreeks/xerrors"
)

// 经典参数：S=100,K=100,T=1,r=0.05,sigma=0.2
func atm(ot types.OptionType) OptionParameters {
	return OptionParameters{
		Spot:           100,
		Strike:         100,
		TimeToMaturity: 1,
		RiskFreeRate:   0.05,
		Volatility:     0.2,
		OptionType:     ot,
	}
}

func TestPrice_ReferenceCase(t *testing.T) {
	call, err := Price(atm(types.OptionTypeCall))
	require.NoError(t, err)
	assert.InDelta(t, 10.450583572185565, call, 1e-9)

	put, err := Price(atm(types.OptionTypePut))
	require.NoError(t, err)
	assert.InDelta(t, 5.573526022256971, put, 1e-9)
}

func TestGreeks_ReferenceCall(t *testing.T) {
	p := atm(types.OptionTypeCall)

	tests := []struct {
		name string
		fn   func(OptionParameters) (float64, error)
		want float64
		tol  float64
	}{
		{"delta", Delta, 0.6368306511756191, 1e-9},
		{"gamma", Gamma, 0.0188, 1e-4},
		{"vega", Vega, 37.52, 1e-2},
		{"theta", Theta, -6.414, 1e-3},
		{"rho", Rho, 53.23, 1e-2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(p)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, tt.tol)
		})
	}
}

func TestGreeks_ReferencePut(t *testing.T) {
	p := atm(types.OptionTypePut)

	d, err := Delta(p)
	require.NoError(t, err)
	assert.InDelta(t, 0.6368306511756191-1, d, 1e-9)

	// theta_put = theta_call + rK e^{-rT}
	th, err := Theta(p)
	require.NoError(t, err)
	assert.InDelta(t, -6.414+0.05*100*math.Exp(-0.05), th, 1e-3)

	// rho_put = rho_call - KT e^{-rT}
	rh, err := Rho(p)
	require.NoError(t, err)
	assert.InDelta(t, 53.23-100*math.Exp(-0.05), rh, 1e-2)
}

func TestPutCallParity(t *testing.T) {
	cases := []OptionParameters{
		{Spot: 100, Strike: 100, TimeToMaturity: 1, RiskFreeRate: 0.05, Volatility: 0.2},
		{Spot: 100, Strike: 100, TimeToMaturity: 45.0 / 365.0, RiskFreeRate: 0.03, Volatility: 0.25},
		{Spot: 80, Strike: 120, TimeToMaturity: 2.5, RiskFreeRate: 0.01, Volatility: 0.6},
		{Spot: 250, Strike: 90, TimeToMaturity: 0.1, RiskFreeRate: -0.005, Volatility: 0.15},
	}
	for _, c := range cases {
		c.OptionType = types.OptionTypeCall
		call, err := Price(c)
		require.NoError(t, err)

		c.OptionType = types.OptionTypePut
		put, err := Price(c)
		require.NoError(t, err)

		rhs := c.Spot - c.Strike*math.Exp(-c.RiskFreeRate*c.TimeToMaturity)
		assert.InEpsilon(t, rhs, call-put, 1e-6, "parity S=%v K=%v T=%v", c.Spot, c.Strike, c.TimeToMaturity)
	}
}

func TestGammaVega_TypeIndependent(t *testing.T) {
	call, put := atm(types.OptionTypeCall), atm(types.OptionTypePut)

	gc, err := Gamma(call)
	require.NoError(t, err)
	gp, err := Gamma(put)
	require.NoError(t, err)
	assert.Equal(t, gc, gp)

	vc, err := Vega(call)
	require.NoError(t, err)
	vp, err := Vega(put)
	require.NoError(t, err)
	assert.Equal(t, vc, vp)

	gs, err := Sensitivities(put)
	require.NoError(t, err)
	assert.Equal(t, gc, gs.Gamma)
	assert.Equal(t, vc, gs.Vega)
}

func TestDelta_Bounds(t *testing.T) {
	// 极端虚值/实值时 N(d1) 在 float64 下会饱和为 0 或 1，这里取远离饱和区的网格。
	for _, spot := range []float64{60, 95, 100, 105, 140} {
		for _, vol := range []float64{0.2, 0.45, 0.8} {
			p := OptionParameters{Spot: spot, Strike: 100, TimeToMaturity: 0.5, RiskFreeRate: 0.02, Volatility: vol}

			p.OptionType = types.OptionTypeCall
			dc, err := Delta(p)
			require.NoError(t, err)
			assert.True(t, dc > 0 && dc < 1, "call delta %v out of (0,1) at spot=%v vol=%v", dc, spot, vol)

			p.OptionType = types.OptionTypePut
			dp, err := Delta(p)
			require.NoError(t, err)
			assert.True(t, dp > -1 && dp < 0, "put delta %v out of (-1,0) at spot=%v vol=%v", dp, spot, vol)
		}
	}
}

func TestPrice_MonotonicInSpot(t *testing.T) {
	prevCall, prevPut := math.Inf(-1), math.Inf(1)
	for spot := 50.0; spot <= 150; spot += 5 {
		p := OptionParameters{Spot: spot, Strike: 100, TimeToMaturity: 1, RiskFreeRate: 0.05, Volatility: 0.2}

		p.OptionType = types.OptionTypeCall
		call, err := Price(p)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, call, prevCall)
		prevCall = call

		p.OptionType = types.OptionTypePut
		put, err := Price(p)
		require.NoError(t, err)
		assert.LessOrEqual(t, put, prevPut)
		prevPut = put
	}
}

func TestBoundaryRejection(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*OptionParameters)
		want   error
	}{
		{"zero maturity", func(p *OptionParameters) { p.TimeToMaturity = 0 }, xerrors.ErrNonPositiveMaturity},
		{"negative maturity", func(p *OptionParameters) { p.TimeToMaturity = -1 }, xerrors.ErrNonPositiveMaturity},
		{"zero volatility", func(p *OptionParameters) { p.Volatility = 0 }, xerrors.ErrNonPositiveVolatility},
		{"negative volatility", func(p *OptionParameters) { p.Volatility = -0.2 }, xerrors.ErrNonPositiveVolatility},
		{"zero spot", func(p *OptionParameters) { p.Spot = 0 }, xerrors.ErrNonPositiveSpot},
		{"negative strike", func(p *OptionParameters) { p.Strike = -5 }, xerrors.ErrNonPositiveStrike},
		{"nan rate", func(p *OptionParameters) { p.RiskFreeRate = math.NaN() }, xerrors.ErrNonFiniteInput},
		{"inf spot", func(p *OptionParameters) { p.Spot = math.Inf(1) }, xerrors.ErrNonFiniteInput},
	}

	ops := map[string]func(OptionParameters) (float64, error){
		"price": Price, "delta": Delta, "gamma": Gamma, "vega": Vega, "theta": Theta, "rho": Rho,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := atm(types.OptionTypeCall)
			tt.mutate(&p)

			for name, op := range ops {
				v, err := op(p)
				require.Error(t, err, name)
				assert.True(t, errors.Is(err, tt.want), "%s: got %v", name, err)
				assert.True(t, xerrors.IsInvalidArg(err), name)
				assert.Zero(t, v, name)
			}

			_, err := Sensitivities(p)
			assert.ErrorIs(t, err, tt.want)
			_, err = Evaluate(p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDegenerateInputs(t *testing.T) {
	tests := []struct {
		name string
		p    OptionParameters
		term string
	}{
		{
			"vol sqrt t underflows to zero",
			OptionParameters{Spot: 100, Strike: 100, TimeToMaturity: 1e-250, Volatility: 1e-200, OptionType: types.OptionTypeCall},
			"vol_sqrt_t",
		},
		{
			"discount overflows",
			OptionParameters{Spot: 100, Strike: 100, TimeToMaturity: 1, RiskFreeRate: -1000, Volatility: 0.2, OptionType: types.OptionTypeCall},
			"discount",
		},
		{
			"rho overflows with finite discount",
			OptionParameters{Spot: 1e300, Strike: 1e300, TimeToMaturity: 1e10, RiskFreeRate: 0, Volatility: 0.2, OptionType: types.OptionTypeCall},
			"rho",
		},
	}

	ops := map[string]func(OptionParameters) (float64, error){
		"price": Price, "delta": Delta, "gamma": Gamma, "vega": Vega, "theta": Theta, "rho": Rho,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, op := range ops {
				v, err := op(tt.p)
				if err != nil {
					assert.ErrorIs(t, err, xerrors.ErrDegenerateInput, name)
					assert.Zero(t, v, name)
					continue
				}
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s returned %v without error", name, v)
			}

			_, err := Evaluate(tt.p)
			require.ErrorIs(t, err, xerrors.ErrDegenerateInput)
			assert.True(t, xerrors.IsInvalidArg(err))
			_, err = Sensitivities(tt.p)
			assert.ErrorIs(t, err, xerrors.ErrDegenerateInput)

			e, ok := xerrors.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tt.term, e.Context["term"])
		})
	}
}

func TestNonFiniteInputContextIsString(t *testing.T) {
	p := atm(types.OptionTypeCall)
	p.Spot = math.Inf(1)

	_, err := Price(p)
	e, ok := xerrors.FromError(err)
	require.True(t, ok)
	assert.Equal(t, "+Inf", e.Context["spot"])
}

func TestInvalidOptionType(t *testing.T) {
	p := atm(types.OptionType("STRADDLE"))

	for name, op := range map[string]func(OptionParameters) (float64, error){
		"price": Price, "delta": Delta, "theta": Theta, "rho": Rho,
	} {
		_, err := op(p)
		assert.ErrorIs(t, err, xerrors.ErrInvalidOptionType, name)
	}

	_, err := Sensitivities(p)
	assert.ErrorIs(t, err, xerrors.ErrInvalidOptionType)

	// gamma 与 vega 不依赖期权类型
	_, err = Gamma(p)
	assert.NoError(t, err)
	_, err = Vega(p)
	assert.NoError(t, err)
}

func TestErrorContextCarriesOffendingField(t *testing.T) {
	p := atm(types.OptionTypeCall)
	p.TimeToMaturity = -1

	_, err := Price(p)
	e, ok := xerrors.FromError(err)
	require.True(t, ok)
	assert.Equal(t, -1.0, e.Context["time_to_maturity"])
	assert.Equal(t, "option already expired or non-positive maturity", e.Message)

	// 预定义错误本身不应被污染
	assert.Empty(t, xerrors.ErrNonPositiveMaturity.Context)
}

func TestEvaluate_MatchesIndividualOperations(t *testing.T) {
	for _, ot := range []types.OptionType{types.OptionTypeCall, types.OptionTypePut} {
		p := OptionParameters{Spot: 87.5, Strike: 92, TimeToMaturity: 0.75, RiskFreeRate: 0.035, Volatility: 0.31, OptionType: ot}

		v, err := Evaluate(p)
		require.NoError(t, err)

		price, _ := Price(p)
		delta, _ := Delta(p)
		gamma, _ := Gamma(p)
		vega, _ := Vega(p)
		theta, _ := Theta(p)
		rho, _ := Rho(p)

		assert.Equal(t, Valuation{Price: price, Greeks: Greeks{Delta: delta, Gamma: gamma, Vega: vega, Theta: theta, Rho: rho}}, v)
	}
}

func TestEvaluate_ConcurrentCallers(t *testing.T) {
	want, err := Evaluate(atm(types.OptionTypeCall))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Evaluate(atm(types.OptionTypeCall))
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}
