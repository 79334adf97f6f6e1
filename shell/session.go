// Package shell 提供命令行交互式定价会话：逐项询问参数，输出价格与希腊字母，
// 之后可反复修改单个参数并重新计算。
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/bsgreeks/algorithm/finance"
	"github.com/wyfcoding/bsgreeks/algorithm/types"
	"github.com/wyfcoding/bsgreeks/contextx"
	"github.com/wyfcoding/bsgreeks/datetime"
	"github.com/wyfcoding/bsgreeks/idgen"
	"github.com/wyfcoding/bsgreeks/logging"
	"github.com/wyfcoding/bsgreeks/xerrors"
)

// Session 一次交互式定价会话，不可并发使用。
type Session struct {
	in     *bufio.Scanner
	out    io.Writer
	calc   *finance.BlackScholesCalculator
	logger *logging.Logger
	now    func() time.Time
	loc    *time.Location

	today    time.Time
	maturity time.Time
	params   finance.OptionParameters
}

// Option 配置 Session。
type Option func(*Session)

// WithClock 替换“今天”的来源，会话开始时读取一次。
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLocation 设置解析到期日所用的时区。
func WithLocation(loc *time.Location) Option {
	return func(s *Session) { s.loc = loc }
}

// WithLogger 设置会话日志，默认使用 logging.Default()。
func WithLogger(logger *logging.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// NewSession 创建交互会话，calc 为 nil 时使用默认精度。
func NewSession(in io.Reader, out io.Writer, calc *finance.BlackScholesCalculator, opts ...Option) *Session {
	if calc == nil {
		calc = finance.NewBlackScholesCalculator(finance.DefaultPlaces)
	}
	s := &Session{
		in:   bufio.NewScanner(in),
		out:  out,
		calc: calc,
		now:  time.Now,
		loc:  time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	return s
}

// Run 执行会话直到用户回答 no 或输入结束，输入结束不视为错误。
func (s *Session) Run(ctx context.Context) error {
	ctx = contextx.WithSessionID(ctx, idgen.GenSessionID())
	s.today = s.now().In(s.loc)
	s.logger.DebugContext(ctx, "interactive session started", contextx.LogAttrs(ctx)...)

	err := s.run(ctx)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	s.logger.DebugContext(ctx, "interactive session finished", append(contextx.LogAttrs(ctx), "error", err)...)
	return err
}

func (s *Session) run(ctx context.Context) error {
	if err := s.collect(); err != nil {
		return err
	}
	s.report(ctx, "")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		answer, err := s.ask("\nDo you want to update any parameters to see the new Greeks? (yes/no): ")
		if err != nil {
			return err
		}

		switch strings.ToLower(answer) {
		case "no":
			return nil
		case "yes":
			updated, err := s.update()
			if err != nil {
				return err
			}
			if updated {
				s.report(ctx, "Updated ")
			}
		default:
			s.println("Invalid input. Please enter 'yes' or 'no'.")
		}
	}
}

// collect 依次读取全部初始参数。
func (s *Session) collect() error {
	ot, err := s.askOptionType("Enter option type (call/put): ")
	if err != nil {
		return err
	}
	s.params.OptionType = ot

	if s.params.Spot, err = s.askFloat("Enter current stock price (S): "); err != nil {
		return err
	}
	if s.params.Strike, err = s.askFloat("Enter strike price (K): "); err != nil {
		return err
	}
	maturity, err := s.askDate("Enter maturity date (YYYY-MM-DD): ")
	if err != nil {
		return err
	}
	s.setMaturity(maturity)

	if s.params.RiskFreeRate, err = s.askFloat("Enter risk-free interest rate (r) as a decimal (e.g., 0.05 for 5%): "); err != nil {
		return err
	}
	s.params.Volatility, err = s.askFloat("Enter volatility (sigma) as a decimal (e.g., 0.2 for 20%): ")
	return err
}

// update 修改单个参数，返回是否发生了修改。
func (s *Session) update() (bool, error) {
	s.println("\nWhich parameter would you like to update?")
	s.println("1. Stock price (S)")
	s.println("2. Strike price (K)")
	s.println("3. Maturity date")
	s.println("4. Risk-free interest rate (r)")
	s.println("5. Volatility (sigma)")

	choice, err := s.ask("Enter the number of your choice: ")
	if err != nil {
		return false, err
	}

	switch choice {
	case "1":
		s.params.Spot, err = s.askFloat("Enter new stock price (S): ")
	case "2":
		s.params.Strike, err = s.askFloat("Enter new strike price (K): ")
	case "3":
		var maturity time.Time
		if maturity, err = s.askDate("Enter new maturity date (YYYY-MM-DD): "); err == nil {
			s.setMaturity(maturity)
		}
	case "4":
		s.params.RiskFreeRate, err = s.askFloat("Enter new risk-free interest rate (r) as a decimal: ")
	case "5":
		s.params.Volatility, err = s.askFloat("Enter new volatility (sigma) as a decimal: ")
	default:
		s.println("Invalid choice. Please try again.")
		return false, nil
	}
	return err == nil, err
}

func (s *Session) setMaturity(maturity time.Time) {
	s.maturity = maturity
	s.params.TimeToMaturity = datetime.YearFraction(s.today, maturity)
}

// report 计算并打印结果；引擎拒绝时打印原因，由用户在修改循环中更正。
func (s *Session) report(ctx context.Context, prefix string) {
	res, err := s.calc.Calculate(s.params)
	if err != nil {
		s.logger.WarnContext(ctx, "valuation rejected", append(contextx.LogAttrs(ctx), "error", err.Error())...)
		s.printf("\nError: %s\n", describe(err))
		return
	}

	s.logger.DebugContext(ctx, "option valuated", append(contextx.LogAttrs(ctx),
		"option_type", s.params.OptionType.String(),
		"maturity", datetime.FormatDate(s.maturity),
		"time_to_maturity", s.params.TimeToMaturity,
	)...)

	places := s.calc.Places()
	s.printf("\n%sOption Price:\n%s\n", prefix, res.Price.StringFixed(places))
	s.printf("\n%sSensitivity Analysis of Greeks:\n", prefix)
	for _, g := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"Delta", res.Delta},
		{"Gamma", res.Gamma},
		{"Vega", res.Vega},
		{"Theta", res.Theta},
		{"Rho", res.Rho},
	} {
		s.printf("%s: %s\n", g.name, g.value.StringFixed(places))
	}
}

// describe 把错误渲染为一行提示，附带出错参数。
func describe(err error) string {
	xe, ok := xerrors.FromError(err)
	if !ok {
		return err.Error()
	}
	if len(xe.Context) == 0 {
		return xe.Message
	}
	parts := make([]string, 0, len(xe.Context))
	for _, k := range slices.Sorted(maps.Keys(xe.Context)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, xe.Context[k]))
	}
	return fmt.Sprintf("%s (%s)", xe.Message, strings.Join(parts, ", "))
}

// ask 打印提示并读取一行，输入结束时返回 io.EOF。
func (s *Session) ask(prompt string) (string, error) {
	s.printf("%s", prompt)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *Session) askFloat(prompt string) (float64, error) {
	for {
		line, err := s.ask(prompt)
		if err != nil {
			return 0, err
		}
		v, perr := strconv.ParseFloat(line, 64)
		if perr == nil {
			return v, nil
		}
		s.println("Invalid number. Please try again.")
	}
}

func (s *Session) askOptionType(prompt string) (types.OptionType, error) {
	for {
		line, err := s.ask(prompt)
		if err != nil {
			return "", err
		}
		ot, perr := types.ParseOptionType(line)
		if perr == nil {
			return ot, nil
		}
		s.println("Invalid option type. Use 'call' or 'put'.")
	}
}

func (s *Session) askDate(prompt string) (time.Time, error) {
	for {
		line, err := s.ask(prompt)
		if err != nil {
			return time.Time{}, err
		}
		d, perr := datetime.ParseDate(line, s.loc)
		if perr == nil {
			return d, nil
		}
		s.println("Invalid date. Use YYYY-MM-DD.")
	}
}

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func (s *Session) println(line string) {
	_, _ = fmt.Fprintln(s.out, line)
}
