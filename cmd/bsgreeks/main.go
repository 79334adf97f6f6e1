// Command bsgreeks 计算欧式期权的 Black-Scholes 价格与希腊字母。
//
// 默认在终端中交互式询问参数；-serve 时启动 HTTP 定价服务。
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/bsgreeks/algorithm/finance"
	"github.com/wyfcoding/bsgreeks/api"
	"github.com/wyfcoding/bsgreeks/app"
	"github.com/wyfcoding/bsgreeks/config"
	"github.com/wyfcoding/bsgreeks/idgen"
	"github.com/wyfcoding/bsgreeks/logging"
	"github.com/wyfcoding/bsgreeks/metrics"
	"github.com/wyfcoding/bsgreeks/server"
	"github.com/wyfcoding/bsgreeks/shell"
	"github.com/wyfcoding/bsgreeks/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "bsgreeks:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("bsgreeks", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to TOML config file (optional)")
	serve := fs.Bool("serve", false, "run the HTTP pricing service instead of the interactive session")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var cfg config.Config
	if err := config.Load(*configPath, &cfg); err != nil {
		return err
	}

	module := "shell"
	if *serve {
		module = "http"
	}
	logging.InitLogger(logging.Config{
		Service:    cfg.Server.Name,
		Module:     module,
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     stderr,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	logger := logging.Default()

	if err := idgen.Init(cfg.Snowflake); err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("load pricing timezone: %w", err)
	}
	calc := finance.NewBlackScholesCalculator(cfg.Pricing.DisplayPlaces)

	if !*serve {
		return shell.NewSession(stdin, stdout, calc,
			shell.WithLocation(loc),
			shell.WithLogger(logger),
		).Run(ctx)
	}

	config.PrintWithMask(cfg)
	config.RegisterReloadHook(func(next *config.Config) {
		logging.Info(ctx, "config reloaded, only log.level applies until restart", "log_level", next.Log.Level)
	})
	if cfg.Server.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	var opts []app.Option

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(cfg.Tracing)
		if err != nil {
			return err
		}
		opts = append(opts, app.WithCleanup(func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", "error", err)
			}
		}))
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Server.Name)
		m.RegisterBuildInfo(cfg.Server.Name, cfg.Version)
	}

	handler := api.NewHandler(calc, m, logger, api.WithLocation(loc))
	engine := api.NewRouter(handler, api.RouterOptions{
		ServiceName:    cfg.Server.Name,
		Logger:         logger,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		Tracing:        cfg.Tracing.Enabled,
		MaxBodyBytes:   cfg.Server.HTTP.MaxBodyBytes,
		RateLimitRPS:   cfg.Server.RateLimit.RPS,
		RateLimitBurst: cfg.Server.RateLimit.Burst,
		RateLimitIdle:  cfg.Server.RateLimit.IdleTTL,
	})

	srv := server.NewGinServer(engine, cfg.HTTPAddr(), logger.Logger, server.Options{
		ReadHeaderTimeout: cfg.Server.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.HTTP.ReadTimeout,
		WriteTimeout:      cfg.Server.HTTP.WriteTimeout,
		ShutdownTimeout:   cfg.Server.HTTP.ShutdownTimeout,
	})
	opts = append(opts, app.WithServer(srv), app.WithShutdownTimeout(cfg.Server.HTTP.ShutdownTimeout))

	return app.New(cfg.Server.Name, logger.Logger, opts...).Run(ctx)
}
