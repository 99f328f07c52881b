package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// BreakerSettings 熔断配置
type BreakerSettings struct {
	// ConsecutiveFailures 连续失败多少次后熔断
	ConsecutiveFailures uint32
	// OpenTimeout 熔断后多久进入半开状态
	OpenTimeout time.Duration
}

// Breaker 给引擎加上熔断，连续失败的引擎在冷却期内直接返回错误
type Breaker struct {
	inner  search.Adapter
	cb     *gobreaker.CircuitBreaker
	logger *logrus.Logger
}

// WithBreaker 包装引擎
func WithBreaker(inner search.Adapter, s BreakerSettings, logger *logrus.Logger) *Breaker {
	if logger == nil {
		logger = discardLogger()
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}

	b := &Breaker{inner: inner, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithField("engine", name).Warnf("⚡ Circuit breaker state change: %s -> %s", from, to)
		},
		// 调用方取消不算引擎故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return b
}

// Name 返回被包装引擎的名称
func (b *Breaker) Name() string {
	return b.inner.Name()
}

// State 当前熔断状态
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Search 在熔断器内执行搜索
func (b *Breaker) Search(ctx context.Context, query string, limit int) ([]search.RawResult, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Search(ctx, query, limit)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("circuit open: %w", err)
	}
	if err != nil {
		return nil, err
	}
	results, _ := out.([]search.RawResult)
	return results, nil
}
