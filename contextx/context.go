// Package contextx 提供在 context.Context 中注入与提取请求级信息的工具函数。
// 使用私有类型作为 Key，防止跨包冲突。
package contextx

import (
	"context"
)

type contextKey int

const (
	RequestIDKey contextKey = iota // 请求唯一标识 Key。
	SessionIDKey                   // 交互会话标识 Key。
	IPKey                          // 客户端 IP Key。
	OptionTypeKey                  // 本次定价的期权类型 Key。
)

// KeyNames 映射 Key 到日志字段名。
var KeyNames = map[contextKey]string{
	RequestIDKey:  "request_id",
	SessionIDKey:  "session_id",
	IPKey:         "client_ip",
	OptionTypeKey: "option_type",
}

// WithRequestID 将请求 ID 注入到 Context 中。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID 从 Context 中提取请求 ID。
func GetRequestID(ctx context.Context) string {
	if val, ok := ctx.Value(RequestIDKey).(string); ok {
		return val
	}
	return ""
}

// WithSessionID 将交互会话 ID 注入到 Context 中。
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// GetSessionID 从 Context 中提取交互会话 ID。
func GetSessionID(ctx context.Context) string {
	if val, ok := ctx.Value(SessionIDKey).(string); ok {
		return val
	}
	return ""
}

// WithIP 将客户端 IP 地址注入到 Context 中。
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, IPKey, ip)
}

// GetIP 从 Context 中尝试提取客户端 IP，若不存在则返回 "0.0.0.0"。
func GetIP(ctx context.Context) string {
	if val, ok := ctx.Value(IPKey).(string); ok {
		return val
	}
	return "0.0.0.0"
}

// WithOptionType 记录当前请求定价的期权类型（CALL/PUT）。
func WithOptionType(ctx context.Context, optionType string) context.Context {
	return context.WithValue(ctx, OptionTypeKey, optionType)
}

// GetOptionType 从 Context 中提取期权类型。
func GetOptionType(ctx context.Context) string {
	if val, ok := ctx.Value(OptionTypeKey).(string); ok {
		return val
	}
	return ""
}

// LogAttrs 把 Context 中已有的字段展开为日志参数。
func LogAttrs(ctx context.Context) []any {
	attrs := make([]any, 0, 2*len(KeyNames))
	for _, key := range []contextKey{RequestIDKey, SessionIDKey, IPKey, OptionTypeKey} {
		if val, ok := ctx.Value(key).(string); ok && val != "" {
			attrs = append(attrs, KeyNames[key], val)
		}
	}
	return attrs
}
