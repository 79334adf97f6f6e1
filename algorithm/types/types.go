// Package types 定义定价算法共享的基础类型。
package types

import (
	"strings"

	"github.com/wyfcoding/bsgreeks/xerrors"
)

// OptionType 定义期权类型。
// 只有 OptionTypeCall 与 OptionTypePut 两个合法取值，其它值一律视为参数错误。
type OptionType string

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

// Valid 报告 t 是否为看涨或看跌之一。
func (t OptionType) Valid() bool {
	return t == OptionTypeCall || t == OptionTypePut
}

// String 返回小写名称，用于日志与控制台输出。
func (t OptionType) String() string {
	return strings.ToLower(string(t))
}

// ParseOptionType 解析用户输入的期权类型，支持 call/put/c/p，大小写不敏感。
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return OptionTypeCall, nil
	case "put", "p":
		return OptionTypePut, nil
	default:
		return "", xerrors.ErrInvalidOptionType.Clone().WithContext("option_type", s)
	}
}

// MarshalText 实现 encoding.TextMarshaler。
func (t OptionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler，JSON 与配置文件中均可写 "call" / "put"。
func (t *OptionType) UnmarshalText(text []byte) error {
	v, err := ParseOptionType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
