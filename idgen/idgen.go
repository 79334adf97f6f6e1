// Package idgen 提供基于雪花算法的唯一 ID 生成器，用于请求与会话标识。
package idgen

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wyfcoding/bsgreeks/config"
)

var (
	// ErrParseTime 解析起始时间失败.
	ErrParseTime = errors.New("failed to parse start time")
	// ErrCreateNode 创建 Snowflake 节点失败.
	ErrCreateNode = errors.New("failed to create snowflake node")
)

const nanosPerMilli = 1000000

// Generator 定义 ID 生成器接口.
type Generator interface {
	Generate() int64
}

// SnowflakeGenerator 使用雪花算法实现 Generator.
// 每毫秒可生成 4096 个 ID，支持 1024 台机器.
type SnowflakeGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeGenerator 创建一个新的 SnowflakeGenerator.
// StartTime 会修改 snowflake 包级 Epoch，进程内应只设置一次。
func NewSnowflakeGenerator(cfg config.SnowflakeConfig) (*SnowflakeGenerator, error) {
	if cfg.StartTime != "" {
		st, err := time.Parse("2006-01-02", cfg.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseTime, err)
		}
		snowflake.Epoch = st.UnixNano() / nanosPerMilli
	}

	node, err := snowflake.NewNode(cfg.MachineID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateNode, err)
	}

	slog.Info("snowflake generator initialized", "machine_id", cfg.MachineID, "epoch", snowflake.Epoch)

	return &SnowflakeGenerator{node: node}, nil
}

// Generate 生成一个新的 ID.
func (g *SnowflakeGenerator) Generate() int64 {
	return g.node.Generate().Int64()
}

var (
	defaultGenerator Generator
	once             sync.Once
	initErr          error
)

// Init 初始化全局默认生成器，只有第一次调用生效.
func Init(cfg config.SnowflakeConfig) error {
	once.Do(func() {
		defaultGenerator, initErr = NewSnowflakeGenerator(cfg)
	})
	return initErr
}

// Default 返回全局默认生成器实例，未初始化时以 machine_id=1 自动初始化.
func Default() Generator {
	if err := Init(config.SnowflakeConfig{MachineID: 1}); err != nil {
		panic(fmt.Errorf("failed to auto-initialize default id generator: %w", err))
	}
	return defaultGenerator
}

// GenID 使用默认生成器生成全局唯一 ID.
func GenID() int64 {
	return Default().Generate()
}

// GenIDString 生成十进制字符串形式的 ID，用作请求 ID.
func GenIDString() string {
	return strconv.FormatInt(GenID(), 10)
}

// GenSessionID 生成交互会话编号，格式为 "S" + 唯一ID.
func GenSessionID() string {
	return "S" + GenIDString()
}
