package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/bsgreeks/algorithm/finance"
	"github.com/wyfcoding/bsgreeks/logging"
	"github.com/wyfcoding/bsgreeks/metrics"
)

type envelope[T any] struct {
	Code    int            `json:"code"`
	Msg     string         `json:"msg"`
	Detail  string         `json:"detail"`
	Context map[string]any `json:"context"`
	Data    T              `json:"data"`
}

type valuationData struct {
	OptionType     string          `json:"option_type"`
	TimeToMaturity decimal.Decimal `json:"time_to_maturity"`
	Price          decimal.Decimal `json:"price"`
	Delta          decimal.Decimal `json:"delta"`
	Gamma          decimal.Decimal `json:"gamma"`
	Vega           decimal.Decimal `json:"vega"`
	Theta          decimal.Decimal `json:"theta"`
	Rho            decimal.Decimal `json:"rho"`
}

var fixedToday = time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

func newTestRouter(t *testing.T, mutate ...func(*RouterOptions)) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewFromConfig(logging.Config{Service: "bsgreeks", Module: "api-test", Output: io.Discard})
	m := metrics.NewMetrics("api-test")
	h := NewHandler(finance.NewBlackScholesCalculator(4), m, logger,
		WithClock(func() time.Time { return fixedToday }),
		WithLocation(time.UTC),
	)

	opts := RouterOptions{
		ServiceName:  "bsgreeks",
		Logger:       logger,
		Metrics:      m,
		MetricsPath:  "/metrics",
		MaxBodyBytes: 4 << 10,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	return NewRouter(h, opts), m
}

func do(engine *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestValuation_ReferenceCall(t *testing.T) {
	engine, m := newTestRouter(t)

	rec := do(engine, http.MethodPost, "/v1/options/valuation",
		`{"option_type":"call","spot":100,"strike":100,"time_to_maturity":1,"rate":0.05,"volatility":0.2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	env := decode[valuationData](t, rec)
	assert.Equal(t, 0, env.Code)
	assert.Equal(t, "CALL", env.Data.OptionType)
	assert.Equal(t, "10.4506", env.Data.Price.StringFixed(4))
	assert.Equal(t, "0.6368", env.Data.Delta.StringFixed(4))
	assert.Equal(t, "0.0188", env.Data.Gamma.StringFixed(4))
	assert.Equal(t, "37.5240", env.Data.Vega.StringFixed(4))
	assert.Equal(t, "-6.4140", env.Data.Theta.StringFixed(4))
	assert.Equal(t, "53.2325", env.Data.Rho.StringFixed(4))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OptionValuationsTotal.WithLabelValues("call", metrics.ResultOK)))
}

func TestValuation_Put(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := do(engine, http.MethodPost, "/v1/options/valuation",
		`{"option_type":"P","spot":100,"strike":100,"time_to_maturity":1,"rate":0.05,"volatility":0.2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode[valuationData](t, rec)
	assert.Equal(t, "PUT", env.Data.OptionType)
	assert.Equal(t, "5.5735", env.Data.Price.StringFixed(4))
	assert.Equal(t, "-0.3632", env.Data.Delta.StringFixed(4))
}

func TestValuation_MaturityDate(t *testing.T) {
	engine, _ := newTestRouter(t)

	// 2024-03-01 到 2025-03-01 共 365 天，恰好一年。
	rec := do(engine, http.MethodPost, "/v1/options/valuation",
		`{"option_type":"call","spot":100,"strike":100,"maturity_date":"2025-03-01","rate":0.05,"volatility":0.2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode[valuationData](t, rec)
	assert.Equal(t, "1.0000", env.Data.TimeToMaturity.StringFixed(4))
	assert.Equal(t, "10.4506", env.Data.Price.StringFixed(4))
}

func TestValuation_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   int
	}{
		{
			"expired maturity date",
			`{"option_type":"call","spot":100,"strike":100,"maturity_date":"2024-03-01","rate":0.05,"volatility":0.2}`,
			http.StatusBadRequest, 400101,
		},
		{
			"negative maturity",
			`{"option_type":"call","spot":100,"strike":100,"time_to_maturity":-1,"rate":0.05,"volatility":0.2}`,
			http.StatusBadRequest, 400101,
		},
		{
			"zero volatility",
			`{"option_type":"put","spot":100,"strike":100,"time_to_maturity":1,"rate":0.05,"volatility":0}`,
			http.StatusBadRequest, 400102,
		},
		{
			"zero spot",
			`{"option_type":"put","spot":0,"strike":100,"time_to_maturity":1,"rate":0.05,"volatility":0.2}`,
			http.StatusBadRequest, 400103,
		},
		{
			"bad option type",
			`{"option_type":"straddle","spot":100,"strike":100,"time_to_maturity":1,"rate":0.05,"volatility":0.2}`,
			http.StatusBadRequest, 400106,
		},
		{
			"bad date",
			`{"option_type":"call","spot":100,"strike":100,"maturity_date":"01/03/2025","rate":0.05,"volatility":0.2}`,
			http.StatusBadRequest, 400107,
		},
		{
			"missing field",
			`{"option_type":"call","strike":100,"time_to_maturity":1,"rate":0.05,"volatility":0.2}`,
			http.StatusBadRequest, 400108,
		},
		{
			"not json",
			`spot=100`,
			http.StatusBadRequest, 400108,
		},
		{
			"both maturity forms",
			`{"option_type":"call","spot":100,"strike":100,"time_to_maturity":1,"maturity_date":"2025-03-01","rate":0.05,"volatility":0.2}`,
			http.StatusBadRequest, 400109,
		},
		{
			"no maturity",
			`{"option_type":"call","spot":100,"strike":100,"rate":0.05,"volatility":0.2}`,
			http.StatusBadRequest, 400109,
		},
		{
			"discount overflows",
			`{"option_type":"call","spot":100,"strike":100,"time_to_maturity":1,"rate":-1000,"volatility":0.2}`,
			http.StatusBadRequest, 400110,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newTestRouter(t)
			rec := do(engine, http.MethodPost, "/v1/options/valuation", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			env := decode[map[string]any](t, rec)
			assert.Equal(t, tt.code, env.Code)
			assert.NotEmpty(t, env.Msg)
		})
	}
}

func TestValuation_RejectionCarriesContextAndMetric(t *testing.T) {
	engine, m := newTestRouter(t)

	rec := do(engine, http.MethodPost, "/v1/options/valuation",
		`{"option_type":"call","spot":100,"strike":100,"time_to_maturity":1,"rate":0.05,"volatility":-0.2}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decode[map[string]any](t, rec)
	assert.Equal(t, "non-positive volatility", env.Msg)
	assert.Equal(t, -0.2, env.Context["volatility"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OptionValuationsTotal.WithLabelValues("call", metrics.ResultRejected)))
}

func TestGreek_Endpoint(t *testing.T) {
	engine, _ := newTestRouter(t)
	const query = "?option_type=call&spot=100&strike=100&time_to_maturity=1&rate=0.05&volatility=0.2"

	tests := []struct {
		greek string
		want  string
	}{
		{"price", "10.4506"},
		{"delta", "0.6368"},
		{"gamma", "0.0188"},
		{"vega", "37.5240"},
		{"Theta", "-6.4140"},
		{"rho", "53.2325"},
	}
	for _, tt := range tests {
		t.Run(tt.greek, func(t *testing.T) {
			rec := do(engine, http.MethodGet, "/v1/options/greeks/"+tt.greek+query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			env := decode[struct {
				Greek string          `json:"greek"`
				Value decimal.Decimal `json:"value"`
			}](t, rec)
			assert.Equal(t, strings.ToLower(tt.greek), env.Data.Greek)
			assert.Equal(t, tt.want, env.Data.Value.StringFixed(4))
		})
	}
}

func TestGreek_GammaVegaIgnoreTypeForPut(t *testing.T) {
	engine, _ := newTestRouter(t)
	const tail = "&spot=100&strike=100&time_to_maturity=1&rate=0.05&volatility=0.2"

	for _, greek := range []string{"gamma", "vega"} {
		call := decode[map[string]any](t, do(engine, http.MethodGet, "/v1/options/greeks/"+greek+"?option_type=call"+tail, ""))
		put := decode[map[string]any](t, do(engine, http.MethodGet, "/v1/options/greeks/"+greek+"?option_type=put"+tail, ""))
		assert.Equal(t, call.Data["value"], put.Data["value"], greek)
	}
}

func TestGreek_Errors(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := do(engine, http.MethodGet, "/v1/options/greeks/vanna?option_type=call&spot=100&strike=100&time_to_maturity=1&rate=0.05&volatility=0.2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 404101, decode[map[string]any](t, rec).Code)

	rec = do(engine, http.MethodGet, "/v1/options/greeks/delta?option_type=call&spot=NaN&strike=100&time_to_maturity=1&rate=0.05&volatility=0.2", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode[map[string]any](t, rec)
	assert.Equal(t, 400105, env.Code)
	assert.Equal(t, "NaN", env.Context["spot"])

	rec = do(engine, http.MethodGet, "/v1/options/greeks/delta?option_type=call&spot=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 400108, decode[map[string]any](t, rec).Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	engine, _ := newTestRouter(t)

	rec := do(engine, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"engine":"ok"`)

	do(engine, http.MethodPost, "/v1/options/valuation",
		`{"option_type":"call","spot":100,"strike":100,"time_to_maturity":1,"rate":0.05,"volatility":0.2}`)

	rec = do(engine, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `option_valuations_total{option_type="call",result="ok"} 1`)
	assert.Contains(t, body, `http_server_requests_total{method="POST",path="/v1/options/valuation",status="200"} 1`)
}

func TestRouter_RateLimit(t *testing.T) {
	engine, _ := newTestRouter(t, func(o *RouterOptions) {
		o.RateLimitRPS = 0.001
		o.RateLimitBurst = 1
	})
	const body = `{"option_type":"call","spot":100,"strike":100,"time_to_maturity":1,"rate":0.05,"volatility":0.2}`

	assert.Equal(t, http.StatusOK, do(engine, http.MethodPost, "/v1/options/valuation", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(engine, http.MethodPost, "/v1/options/valuation", body).Code)
	// 健康检查不受限流影响
	assert.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/healthz", "").Code)
}

func TestRouter_AccessLogCarriesOptionType(t *testing.T) {
	var buf bytes.Buffer
	engine, _ := newTestRouter(t, func(o *RouterOptions) {
		o.Logger = logging.NewFromConfig(logging.Config{Service: "bsgreeks", Module: "api-test", Level: "info", Output: &buf})
	})

	rec := do(engine, http.MethodGet, "/v1/options/greeks/delta?option_type=p&spot=100&strike=100&time_to_maturity=1&rate=0.05&volatility=0.2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	out := buf.String()
	assert.Contains(t, out, `"msg":"HTTP Request"`)
	assert.Contains(t, out, `"option_type":"PUT"`)
	assert.Contains(t, out, `"request_id"`)
}
