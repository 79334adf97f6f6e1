// Package app 管理服务进程的生命周期：启动服务器、等待退出信号、优雅关闭与资源清理。
package app

import (
	"os"
	"time"

	"github.com/wyfcoding/bsgreeks/server"
)

// Option 函数式选项。
type Option func(*options)

type options struct {
	servers         []server.Server
	cleanups        []func()
	signals         []os.Signal
	shutdownTimeout time.Duration
}

// WithServer 注册由 App 启动和关闭的服务器。
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithCleanup 注册关闭时执行的清理函数，按注册的逆序执行。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		o.cleanups = append(o.cleanups, cleanup)
	}
}

// WithSignals 覆盖触发关闭的信号，默认 SIGINT 与 SIGTERM。
func WithSignals(sigs ...os.Signal) Option {
	return func(o *options) {
		o.signals = sigs
	}
}

// WithShutdownTimeout 设置关闭所有服务器的总超时。
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		o.shutdownTimeout = d
	}
}
