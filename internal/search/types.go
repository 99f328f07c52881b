package search

import (
	"context"
	"errors"
	"time"
)

// RawResult 单个引擎返回的原始结果
type RawResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Engine  string `json:"source_engine"`
}

// ScoredResult 打分后的结果，打分完成后不再修改
type ScoredResult struct {
	RawResult
	ContentQuality float64 `json:"content_quality_score"`
	BusinessValue  float64 `json:"business_value_score"`
	ChineseRatio   float64 `json:"chinese_ratio"`
	IsChinese      bool    `json:"is_chinese"`
	IsPremium      bool    `json:"is_premium_source"`
}

// PerformanceRecord 单次搜索的性能记录
type PerformanceRecord struct {
	ExecutionTime    time.Duration `json:"execution_time"`
	EnginesSucceeded int           `json:"engines_succeeded"`
	EnginesFailed    int           `json:"engines_failed"`
	CacheHit         bool          `json:"cache_hit"`
}

// EngineStatus 单个引擎在一次搜索中的结果摘要
type EngineStatus struct {
	Engine  string        `json:"engine"`
	OK      bool          `json:"ok"`
	Reason  string        `json:"reason,omitempty"`
	Count   int           `json:"count"`
	Elapsed time.Duration `json:"elapsed"`
}

// ResultSet 排序后的结果集
type ResultSet struct {
	Query          string            `json:"query"`
	Success        bool              `json:"success"`
	Error          string            `json:"error,omitempty"`
	Results        []ScoredResult    `json:"results"`
	TotalResults   int               `json:"total_results"`
	ChineseResults int               `json:"chinese_results"`
	PremiumResults int               `json:"premium_results"`
	Engines        []EngineStatus    `json:"engines"`
	Performance    PerformanceRecord `json:"performance"`
}

// Clone 返回深拷贝，缓存读写都经过这里
func (rs *ResultSet) Clone() *ResultSet {
	if rs == nil {
		return nil
	}
	out := *rs
	out.Results = append(make([]ScoredResult, 0, len(rs.Results)), rs.Results...)
	out.Engines = append(make([]EngineStatus, 0, len(rs.Engines)), rs.Engines...)
	return &out
}

// EngineOutcome 一次调度中单个引擎的结果
type EngineOutcome struct {
	Engine  string
	Results []RawResult
	Err     error
	Elapsed time.Duration
}

// OK 引擎是否成功
func (o EngineOutcome) OK() bool {
	return o.Err == nil
}

// Reason 失败原因，成功时为空
func (o EngineOutcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	if isTimeout(o.Err) {
		return "timeout"
	}
	var ee *EngineError
	if errors.As(o.Err, &ee) && ee.Err != nil {
		return ee.Err.Error()
	}
	return o.Err.Error()
}

func (o EngineOutcome) status() EngineStatus {
	return EngineStatus{
		Engine:  o.Engine,
		OK:      o.OK(),
		Reason:  o.Reason(),
		Count:   len(o.Results),
		Elapsed: o.Elapsed,
	}
}

// Adapter 搜索引擎适配器，ctx 携带本次调用的截止时间
type Adapter interface {
	// Name 返回引擎名称
	Name() string
	// Search 执行搜索
	Search(ctx context.Context, query string, limit int) ([]RawResult, error)
}

// Cache 结果缓存。Get 在未命中或已过期时返回 (nil, nil)
type Cache interface {
	Get(ctx context.Context, normalizedQuery string, maxResults int) (*ResultSet, error)
	Put(ctx context.Context, normalizedQuery string, maxResults int, rs *ResultSet, ttl time.Duration) error
}

// MetricsEvent 每次搜索结束后发送给 MetricsSink 的事件
type MetricsEvent struct {
	ID               string         `json:"id"`
	Timestamp        time.Time      `json:"timestamp"`
	Query            string         `json:"query"`
	CacheHit         bool           `json:"cache_hit"`
	Success          bool           `json:"success"`
	EnginesSucceeded int            `json:"engines_succeeded"`
	EnginesFailed    int            `json:"engines_failed"`
	ExecutionTime    time.Duration  `json:"execution_time"`
	ResultCount      int            `json:"result_count"`
	ChineseResults   int            `json:"chinese_results"`
	PremiumResults   int            `json:"premium_results"`
	AvgQuality       float64        `json:"avg_quality"`
	AvgBusinessValue float64        `json:"avg_business_value"`
	Engines          []EngineStatus `json:"engines,omitempty"`
}

// MetricsSink 接收搜索事件，实现方不得阻塞调用方
type MetricsSink interface {
	Record(ev MetricsEvent)
}
