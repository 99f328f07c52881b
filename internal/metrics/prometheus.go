package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cliffyan/go-biz-search/internal/search"
)

const namespace = "bizsearch"

// Prometheus 把搜索事件导出为 Prometheus 指标，使用独立的 Registry
type Prometheus struct {
	registry *prometheus.Registry

	searches       *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	results        prometheus.Histogram
	engineRequests *prometheus.CounterVec
	engineDuration *prometheus.HistogramVec
}

// NewPrometheus 创建 Prometheus sink
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		searches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Searches by outcome (success, failure, cache_hit)",
			},
			[]string{"outcome"},
		),
		searchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "End-to-end search time in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 6, 10, 15},
			},
			[]string{"cache"},
		),
		results: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results",
				Help:      "Number of results returned per search",
				Buckets:   prometheus.LinearBuckets(0, 5, 6),
			},
		),
		engineRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "engine_requests_total",
				Help:      "Engine calls by engine and status",
			},
			[]string{"engine", "status"},
		),
		engineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "engine_duration_seconds",
				Help:      "Engine call time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"engine"},
		),
	}
}

// Record 实现 search.MetricsSink
func (p *Prometheus) Record(ev search.MetricsEvent) {
	outcome := "success"
	switch {
	case ev.CacheHit:
		outcome = "cache_hit"
	case !ev.Success:
		outcome = "failure"
	}
	p.searches.WithLabelValues(outcome).Inc()

	cache := "miss"
	if ev.CacheHit {
		cache = "hit"
	}
	p.searchDuration.WithLabelValues(cache).Observe(ev.ExecutionTime.Seconds())
	if ev.Success {
		p.results.Observe(float64(ev.ResultCount))
	}

	for _, es := range ev.Engines {
		status := "ok"
		if !es.OK {
			status = "failed"
		}
		p.engineRequests.WithLabelValues(es.Engine, status).Inc()
		p.engineDuration.WithLabelValues(es.Engine).Observe(es.Elapsed.Seconds())
	}
}

// Handler 返回 /metrics 处理器
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry 返回底层 Registry
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
