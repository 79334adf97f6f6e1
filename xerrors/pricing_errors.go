package xerrors

// 期权定价相关的预定义错误，均属于 ErrInvalidArg 大类。
// 调用方通过 errors.Is 按业务码匹配，返回给上层的应是 Clone 出来的实例。
var (
	// ErrNonPositiveMaturity 到期时间非正（期权已到期）。
	ErrNonPositiveMaturity = New(ErrInvalidArg, 400101, "option already expired or non-positive maturity", "time to maturity must be > 0", nil)
	// ErrNonPositiveVolatility 波动率非正。
	ErrNonPositiveVolatility = New(ErrInvalidArg, 400102, "non-positive volatility", "volatility must be > 0", nil)
	// ErrNonPositiveSpot 标的价格非正。
	ErrNonPositiveSpot = New(ErrInvalidArg, 400103, "non-positive spot price", "spot must be > 0", nil)
	// ErrNonPositiveStrike 行权价非正。
	ErrNonPositiveStrike = New(ErrInvalidArg, 400104, "non-positive strike price", "strike must be > 0", nil)
	// ErrNonFiniteInput 输入为 NaN 或无穷大。
	ErrNonFiniteInput = New(ErrInvalidArg, 400105, "non-finite input", "inputs must be finite numbers", nil)
	// ErrInvalidOptionType 无效的期权类型。
	ErrInvalidOptionType = New(ErrInvalidArg, 400106, "invalid option type", "supported types: call, put", nil)
	// ErrInvalidDate 日期格式错误。
	ErrInvalidDate = New(ErrInvalidArg, 400107, "invalid date", "expected YYYY-MM-DD", nil)
	// ErrMalformedRequest 请求体或查询参数无法解析。
	ErrMalformedRequest = New(ErrInvalidArg, 400108, "malformed request", "", nil)
	// ErrMaturityUnspecified 到期时间与到期日都未给出或同时给出。
	ErrMaturityUnspecified = New(ErrInvalidArg, 400109, "exactly one of time_to_maturity or maturity_date is required", "", nil)
	// ErrDegenerateInput 输入有限但中间量或结果溢出为 NaN/无穷大。
	ErrDegenerateInput = New(ErrInvalidArg, 400110, "numerically degenerate inputs", "inputs overflow or underflow float64 during valuation", nil)
	// ErrUnknownGreek 请求了不支持的希腊字母。
	ErrUnknownGreek = New(ErrNotFound, 404101, "unknown greek", "supported: price, delta, gamma, vega, theta, rho", nil)
)
