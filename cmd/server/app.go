package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/cache"
	"github.com/cliffyan/go-biz-search/internal/config"
	"github.com/cliffyan/go-biz-search/internal/engine"
	"github.com/cliffyan/go-biz-search/internal/metrics"
	"github.com/cliffyan/go-biz-search/internal/search"
)

// app 组装好的运行时组件
type app struct {
	orchestrator *search.Orchestrator
	registry     *engine.Registry
	recorder     *metrics.Recorder
	prometheus   *metrics.Prometheus
	closers      []func()
}

// newApp 按配置创建缓存、引擎、指标和编排器。ctx 结束时内存缓存的清理协程退出
func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*app, error) {
	a := &app{}

	registry, err := engine.NewRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.registry = registry
	a.closers = append(a.closers, registry.Close)

	c, err := a.buildCache(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	var sink search.MetricsSink
	if cfg.Metrics.Enabled {
		sinks := metrics.Multi{}
		a.recorder = metrics.NewRecorder(cfg.Metrics.Retention, cfg.Metrics.AlertThreshold)
		sinks = append(sinks, a.recorder)
		if cfg.Metrics.Prometheus {
			a.prometheus = metrics.NewPrometheus()
			sinks = append(sinks, a.prometheus)
		}
		async := metrics.NewAsync(sinks, cfg.Metrics.BufferSize, logger)
		a.closers = append(a.closers, async.Close)
		sink = async
	}

	o, err := search.NewOrchestrator(cfg.SearchOptions(), registry.Adapters(), c, sink, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.orchestrator = o
	return a, nil
}

func (a *app) buildCache(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (search.Cache, error) {
	switch cfg.Cache.Backend {
	case "none":
		logger.Infof("💾 Result cache disabled")
		return nil, nil
	case "redis":
		r := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		}, logger)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := r.Ping(pingCtx); err != nil {
			logger.Warnf("⚠️ Redis not reachable at %s, searches will run uncached until it is: %v", cfg.Cache.Redis.Addr, err)
		} else {
			logger.Infof("💾 Redis cache connected: %s", cfg.Cache.Redis.Addr)
		}
		a.closers = append(a.closers, func() { _ = r.Close() })
		return r, nil
	case "memory", "":
		m := cache.NewMemory(cache.WithMaxEntries(cfg.Cache.MaxEntries), cache.WithLogger(logger))
		janitorCtx, cancel := context.WithCancel(ctx)
		go m.RunJanitor(janitorCtx, cfg.Cache.JanitorInterval)
		a.closers = append(a.closers, cancel)
		return m, nil
	}
	return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
}

// Close 按创建的逆序释放资源
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
