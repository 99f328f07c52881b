package engine

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/config"
	"github.com/cliffyan/go-biz-search/internal/search"
)

// Registry 按配置创建的引擎集合
type Registry struct {
	adapters []search.Adapter
	browser  *BrowserManager
	logger   *logrus.Logger
}

// NewRegistry 按 cfg.Engines.Enabled 的顺序创建引擎，每个 HTTP 引擎有自己的 cookie 和限速
func NewRegistry(cfg *config.Config, logger *logrus.Logger) (*Registry, error) {
	if logger == nil {
		logger = discardLogger()
	}
	r := &Registry{logger: logger}
	proxyURL := cfg.ProxyURL()

	for _, name := range cfg.Engines.Enabled {
		adapter, err := r.build(name, cfg, proxyURL)
		if err != nil {
			r.Close()
			return nil, err
		}
		if cfg.Engines.Breaker.Enabled {
			adapter = WithBreaker(adapter, BreakerSettings{
				ConsecutiveFailures: cfg.Engines.Breaker.ConsecutiveFailures,
				OpenTimeout:         cfg.Engines.Breaker.OpenTimeout,
			}, logger)
		}
		r.adapters = append(r.adapters, adapter)
		logger.Debugf("📝 Registered search engine: %s", name)
	}

	logger.Infof("✅ Initialized %d search engine(s): %s", len(r.adapters), strings.Join(r.Names(), ", "))
	return r, nil
}

func (r *Registry) build(name string, cfg *config.Config, proxyURL string) (search.Adapter, error) {
	if strings.HasPrefix(name, "browser_") {
		if r.browser == nil {
			r.browser = NewBrowserManager(proxyURL, cfg.Engines.Browser.Headless, r.logger)
			r.logger.Infof("🌐 Browser engines enabled (headless=%v)", cfg.Engines.Browser.Headless)
		}
		return NewBrowserEngine(name, r.browser, cfg.Engines.MaxPages, r.logger)
	}

	opts := Options{
		Client: NewHTTPClient(ClientOptions{
			ProxyURL:    proxyURL,
			Timeout:     cfg.Orchestrator.PerEngineTimeout,
			MinInterval: cfg.Engines.MinRequestInterval,
			MaxRetries:  cfg.Engines.MaxRetries,
		}, r.logger),
		MaxPages: cfg.Engines.MaxPages,
		Logger:   r.logger,
	}

	switch name {
	case NameBing:
		return NewBingEngine(opts), nil
	case NameBaidu:
		return NewBaiduEngine(opts), nil
	case NameSogou:
		return NewSogouEngine(opts), nil
	case NameDuckDuckGo:
		return NewDuckDuckGoEngine(opts), nil
	case NameZhihu:
		return NewZhihuEngine(opts), nil
	case NameDouban:
		return NewDoubanEngine(opts), nil
	case NameZhidao:
		return NewZhidaoEngine(opts), nil
	}
	return nil, fmt.Errorf("unknown search engine: %s", name)
}

// Adapters 返回调度顺序下的引擎
func (r *Registry) Adapters() []search.Adapter {
	return append([]search.Adapter(nil), r.adapters...)
}

// Names 返回引擎名称
func (r *Registry) Names() []string {
	names := make([]string, len(r.adapters))
	for i, a := range r.adapters {
		names[i] = a.Name()
	}
	return names
}

// Close 关闭共享浏览器
func (r *Registry) Close() {
	if r.browser != nil {
		r.browser.Close()
	}
}
