// Package health 提供就绪检查函数与 /healthz 处理器.
package health

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc"
	"github.com/wyfcoding/bsgreeks/algorithm/finance"
	"github.com/wyfcoding/bsgreeks/algorithm/types"
)

// Checker 定义健康检查函数原型。
type Checker func() error

// 自检用的参考场景：S=K=100, T=1, r=5%, sigma=20% 的看涨期权。
const (
	referenceCallPrice = 10.450583572185565
	referenceTolerance = 1e-9
)

// EngineChecker 用参考场景验证定价引擎结果。
func EngineChecker() Checker {
	return func() error {
		price, err := finance.Price(finance.OptionParameters{
			Spot:           100,
			Strike:         100,
			TimeToMaturity: 1,
			RiskFreeRate:   0.05,
			Volatility:     0.2,
			OptionType:     types.OptionTypeCall,
		})
		if err != nil {
			return fmt.Errorf("engine self-check failed: %w", err)
		}
		if math.Abs(price-referenceCallPrice) > referenceTolerance {
			return fmt.Errorf("engine self-check drift: got %v", price)
		}
		return nil
	}
}

// Run 并发执行全部检查，返回每项的结果（"ok" 或错误信息）以及是否全部通过。
// 检查函数 panic 时由 conc 重新抛出。
func Run(checkers map[string]Checker) (map[string]string, bool) {
	var (
		mu      sync.Mutex
		wg      conc.WaitGroup
		results = make(map[string]string, len(checkers))
		healthy = true
	)
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			results[name] = err.Error()
			healthy = false
			return
		}
		results[name] = "ok"
	}

	for name, check := range checkers {
		if check == nil {
			record(name, errors.New("checker is nil"))
			continue
		}
		wg.Go(func() { record(name, check()) })
	}
	wg.Wait()
	return results, healthy
}

// Handler 返回 /healthz 的 Gin 处理器，任一检查失败时返回 503。
func Handler(checkers map[string]Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, healthy := Run(checkers)
		status, code := "up", http.StatusOK
		if !healthy {
			status, code = "down", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "checks": results})
	}
}
