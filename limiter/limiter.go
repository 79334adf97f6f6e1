// Package limiter 提供基于令牌桶的本地限流器。
package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate" // 导入基于令牌桶算法的限流库。
)

// Limiter 接口定义了限流器的通用行为。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error) // 检查是否允许请求通过。
}

// LocalLimiter 是一个基于令牌桶算法的本地全局限流器，忽略 key。
type LocalLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter 创建全局限流器。
// r: 每秒生成的令牌数；b: 令牌桶容量，即允许的瞬时突发请求数。
func NewLocalLimiter(r rate.Limit, b int) *LocalLimiter {
	return &LocalLimiter{limiter: rate.NewLimiter(r, b)}
}

// Allow 尝试从令牌桶中获取一个令牌。
func (l *LocalLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return l.limiter.Allow(), nil
}

// DefaultIdleTTL 桶闲置超过该时长后可被回收。
const DefaultIdleTTL = 10 * time.Minute

// KeyedLimiter 按 key（通常是客户端 IP）分别维护令牌桶。
// 闲置的桶在后续 Allow 调用中被顺带回收，回收间隔不短于 idleTTL。
type KeyedLimiter struct {
	r       rate.Limit
	b       int
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastPrune time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedOption 配置 KeyedLimiter。
type KeyedOption func(*KeyedLimiter)

// WithIdleTTL 设置桶的闲置回收时长，d <= 0 时忽略。
func WithIdleTTL(d time.Duration) KeyedOption {
	return func(l *KeyedLimiter) {
		if d > 0 {
			l.idleTTL = d
		}
	}
}

// WithClock 替换时间来源。
func WithClock(now func() time.Time) KeyedOption {
	return func(l *KeyedLimiter) { l.now = now }
}

// NewKeyedLimiter 创建按 key 隔离的限流器，每个 key 的速率与容量相同。
// idleTTL 不会短于令牌桶从空到满所需的时间，回收只发生在桶已回满之后，不会提前放行被限流的客户端。
func NewKeyedLimiter(r rate.Limit, b int, opts ...KeyedOption) *KeyedLimiter {
	l := &KeyedLimiter{
		r:       r,
		b:       b,
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(l)
	}
	if r > 0 && r != rate.Inf {
		if refill := time.Duration(float64(b) / float64(r) * float64(time.Second)); refill > l.idleTTL {
			l.idleTTL = refill
		}
	}
	l.lastPrune = l.now()
	return l
}

// Allow 检查 key 对应的令牌桶。
func (l *KeyedLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastPrune) >= l.idleTTL {
		l.pruneLocked(now)
	}
	bk, ok := l.buckets[key]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(l.r, l.b)}
		l.buckets[key] = bk
	}
	bk.lastSeen = now
	l.mu.Unlock()

	return bk.limiter.AllowN(now, 1), nil
}

// Prune 立即回收闲置超过 idleTTL 的桶，返回回收数量。
func (l *KeyedLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked(l.now())
}

func (l *KeyedLimiter) pruneLocked(now time.Time) int {
	removed := 0
	for key, bk := range l.buckets {
		if now.Sub(bk.lastSeen) >= l.idleTTL {
			delete(l.buckets, key)
			removed++
		}
	}
	l.lastPrune = now
	return removed
}

// Len 返回当前持有的桶数量。
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
