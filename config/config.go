// Package config 提供了统一的配置加载与管理能力.
// 配置文件为 TOML，环境变量前缀 APP_ 可覆盖任意键（如 APP_LOG_LEVEL）。
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wyfcoding/bsgreeks/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置结构.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    toml:"server"`
	Log       LogConfig       `mapstructure:"log"       toml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   toml:"metrics"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake" toml:"snowflake"`
	Pricing   PricingConfig   `mapstructure:"pricing"   toml:"pricing"`
	Tracing   TracingConfig   `mapstructure:"tracing"   toml:"tracing"`
	Version   string          `mapstructure:"version"   toml:"version"`
}

// ServerConfig 定义 HTTP 定价服务的网络参数.
type ServerConfig struct {
	Name        string `mapstructure:"name"        toml:"name"        validate:"required"`
	Environment string `mapstructure:"environment" toml:"environment" validate:"oneof=dev test prod"`
	HTTP        struct {
		Addr              string        `mapstructure:"addr"                toml:"addr"`
		Port              int           `mapstructure:"port"                toml:"port"                validate:"required,min=1,max=65535"`
		ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" toml:"read_header_timeout"`
		ReadTimeout       time.Duration `mapstructure:"read_timeout"        toml:"read_timeout"`
		WriteTimeout      time.Duration `mapstructure:"write_timeout"       toml:"write_timeout"`
		ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    toml:"shutdown_timeout"`
		MaxBodyBytes      int64         `mapstructure:"max_body_bytes"      toml:"max_body_bytes"`
	} `mapstructure:"http" toml:"http"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" toml:"rate_limit"`
}

// RateLimitConfig 按客户端 IP 的令牌桶限流参数，RPS <= 0 表示不限流.
type RateLimitConfig struct {
	RPS     float64       `mapstructure:"rps"      toml:"rps"      validate:"min=0"`
	Burst   int           `mapstructure:"burst"    toml:"burst"    validate:"min=0"`
	IdleTTL time.Duration `mapstructure:"idle_ttl" toml:"idle_ttl" validate:"min=0"` // 客户端闲置超过该时长后回收其令牌桶
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"oneof=debug info warn error"` // 日志级别。
	Format     string `mapstructure:"format"      toml:"format"      validate:"oneof=json text"`             // 日志格式。
	File       string `mapstructure:"file"        toml:"file"`                                               // 日志文件路径。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`                                           // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`                                        // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`                                            // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`                                           // 是否启用压缩。
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// SnowflakeConfig 请求 ID 生成器参数.
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id" validate:"min=0,max=1023"`
}

// TracingConfig OpenTelemetry 链路追踪配置.
// OTLPEndpoint 为空时只在进程内生成 Span（日志仍带 trace_id），不导出.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"  toml:"sample_ratio"  validate:"min=0,max=1"`
}

// PricingConfig 定价结果的展示参数.
type PricingConfig struct {
	DisplayPlaces int32  `mapstructure:"display_places" toml:"display_places" validate:"min=1,max=12"`
	Timezone      string `mapstructure:"timezone"       toml:"timezone"` // 计算“今天”所用时区，为空使用本地时区
}

// HTTPAddr 返回 HTTP 监听地址。
func (c *Config) HTTPAddr() string {
	if c.Server.HTTP.Addr != "" {
		return c.Server.HTTP.Addr
	}
	return fmt.Sprintf(":%d", c.Server.HTTP.Port)
}

// Location 解析 Pricing.Timezone。
func (c *Config) Location() (*time.Location, error) {
	if c.Pricing.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Pricing.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "dev")
	v.SetDefault("server.name", "bsgreeks")
	v.SetDefault("server.environment", "dev")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_header_timeout", 5*time.Second)
	v.SetDefault("server.http.read_timeout", 10*time.Second)
	v.SetDefault("server.http.write_timeout", 10*time.Second)
	v.SetDefault("server.http.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.http.max_body_bytes", 64<<10)
	v.SetDefault("server.rate_limit.rps", 0)
	v.SetDefault("server.rate_limit.burst", 0)
	v.SetDefault("server.rate_limit.idle_ttl", 10*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 7)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("snowflake.machine_id", 1)
	v.SetDefault("pricing.display_places", 4)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "bsgreeks")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

var (
	mu        sync.Mutex
	vInstance = viper.New()
	onReload  []func(*Config)
	validate  = validator.New()
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	onReload = append(onReload, hook)
}

// Load 加载配置。path 为空时只使用默认值与环境变量，不监听文件变化。
func Load(path string, conf *Config) error {
	mu.Lock()
	defer mu.Unlock()

	vInstance = viper.New()
	setDefaults(vInstance)

	vInstance.SetEnvPrefix("APP")
	vInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vInstance.AutomaticEnv()

	if path != "" {
		vInstance.SetConfigFile(path)
		vInstance.SetConfigType("toml")
		if err := vInstance.ReadInConfig(); err != nil {
			return fmt.Errorf("read config error: %w", err)
		}
	}

	if err := vInstance.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if path == "" {
		return nil
	}

	v := vInstance
	v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)

		var next Config
		if err := v.Unmarshal(&next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := validate.Struct(&next); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}

		// 运行期只允许调整日志级别，其它字段需重启生效
		logging.SetLevel(next.Log.Level)
		slog.Info("config hot-reloaded and validated successfully", "log_level", next.Log.Level)

		mu.Lock()
		hooks := append([]func(*Config){}, onReload...)
		mu.Unlock()
		for _, hook := range hooks {
			hook(&next)
		}
	})
	v.WatchConfig()

	return nil
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if unmarshalErr := json.Unmarshal(data, &configMap); unmarshalErr != nil {
		slog.Error("failed to unmarshal config for masking", "error", unmarshalErr)
		return
	}

	mask(configMap)

	maskedJSON, marshalErr := json.Marshal(configMap)
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)
		return
	}

	slog.Info("current effective configuration", "config", string(maskedJSON))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "key", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}
