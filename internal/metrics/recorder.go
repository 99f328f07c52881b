package metrics

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// 默认保留最近的搜索条数
const DefaultRetention = 100

// 性能分级
const (
	TierExcellent  = "excellent"
	TierGood       = "good"
	TierAcceptable = "acceptable"
	TierSlow       = "slow"
)

// 引擎可靠性
const (
	ReliabilityHigh   = "high"
	ReliabilityMedium = "medium"
	ReliabilityLow    = "low"
)

// 整体状态
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

const (
	slowResponseAlert = 5 * time.Second
	lowCacheHitRate   = 0.1
	cacheAlertMinimum = 10
)

// Tier 按耗时分级
func Tier(d time.Duration) string {
	switch {
	case d < time.Second:
		return TierExcellent
	case d < 3*time.Second:
		return TierGood
	case d < 6*time.Second:
		return TierAcceptable
	default:
		return TierSlow
	}
}

// Reliability 按成功率评估引擎可靠性
func Reliability(successRate float64) string {
	switch {
	case successRate >= 0.9:
		return ReliabilityHigh
	case successRate >= 0.7:
		return ReliabilityMedium
	default:
		return ReliabilityLow
	}
}

// EngineStats 单个引擎在统计窗口内的表现
type EngineStats struct {
	Requests        int     `json:"requests"`
	Successes       int     `json:"successes"`
	SuccessRate     float64 `json:"success_rate"`
	AvgResponseTime float64 `json:"avg_response_time"`
	Reliability     string  `json:"reliability"`
}

// Summary 业务指标汇总，时间单位为秒
type Summary struct {
	GeneratedAt        time.Time              `json:"generated_at"`
	Window             int                    `json:"window"`
	TotalSearches      int                    `json:"total_searches"`
	SuccessRate        float64                `json:"success_rate"`
	CacheHitRate       float64                `json:"cache_hit_rate"`
	AvgResponseTime    float64                `json:"avg_response_time"`
	AvgResults         float64                `json:"avg_results"`
	ChineseContentRate float64                `json:"chinese_content_rate"`
	PremiumContentRate float64                `json:"premium_content_rate"`
	AvgQuality         float64                `json:"avg_quality"`
	AvgBusinessValue   float64                `json:"avg_business_value"`
	PerformanceTiers   map[string]int         `json:"performance_tiers"`
	Engines            map[string]EngineStats `json:"engines"`
	Status             string                 `json:"status"`
	Alerts             []string               `json:"alerts"`
}

// Recorder 保存最近若干次搜索事件，按需计算汇总
type Recorder struct {
	mu             sync.Mutex
	history        []search.MetricsEvent
	retention      int
	alertThreshold float64
	now            func() time.Time
}

// NewRecorder 创建业务指标记录器。alertThreshold 为成功率告警阈值，<=0 时取 0.8
func NewRecorder(retention int, alertThreshold float64) *Recorder {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if alertThreshold <= 0 || alertThreshold > 1 {
		alertThreshold = 0.8
	}
	return &Recorder{
		retention:      retention,
		alertThreshold: alertThreshold,
		now:            time.Now,
	}
}

// Record 实现 search.MetricsSink
func (r *Recorder) Record(ev search.MetricsEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, ev)
	if over := len(r.history) - r.retention; over > 0 {
		r.history = append(r.history[:0:0], r.history[over:]...)
	}
}

// Recent 返回最近 n 条事件，新的在前
func (r *Recorder) Recent(n int) []search.MetricsEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.history) {
		n = len(r.history)
	}
	out := make([]search.MetricsEvent, 0, n)
	for i := len(r.history) - 1; i >= len(r.history)-n; i-- {
		out = append(out, r.history[i])
	}
	return out
}

// Summary 计算统计窗口内的汇总
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	history := append([]search.MetricsEvent(nil), r.history...)
	r.mu.Unlock()

	s := Summary{
		GeneratedAt:      r.now(),
		Window:           r.retention,
		TotalSearches:    len(history),
		PerformanceTiers: map[string]int{TierExcellent: 0, TierGood: 0, TierAcceptable: 0, TierSlow: 0},
		Engines:          map[string]EngineStats{},
		Status:           StatusHealthy,
		Alerts:           []string{},
	}
	if len(history) == 0 {
		return s
	}

	var successes, cacheHits, results, chinese, premium, scored int
	var elapsed time.Duration
	var quality, value float64
	engineElapsed := map[string]time.Duration{}

	for _, ev := range history {
		if ev.Success {
			successes++
		}
		if ev.CacheHit {
			cacheHits++
		}
		elapsed += ev.ExecutionTime
		s.PerformanceTiers[Tier(ev.ExecutionTime)]++
		results += ev.ResultCount
		chinese += ev.ChineseResults
		premium += ev.PremiumResults
		if ev.ResultCount > 0 {
			quality += ev.AvgQuality
			value += ev.AvgBusinessValue
			scored++
		}

		for _, es := range ev.Engines {
			st := s.Engines[es.Engine]
			st.Requests++
			if es.OK {
				st.Successes++
			}
			s.Engines[es.Engine] = st
			engineElapsed[es.Engine] += es.Elapsed
		}
	}

	n := float64(len(history))
	s.SuccessRate = round(float64(successes) / n)
	s.CacheHitRate = round(float64(cacheHits) / n)
	s.AvgResponseTime = round((elapsed / time.Duration(len(history))).Seconds())
	s.AvgResults = round(float64(results) / n)
	if results > 0 {
		s.ChineseContentRate = round(float64(chinese) / float64(results))
		s.PremiumContentRate = round(float64(premium) / float64(results))
	}
	if scored > 0 {
		s.AvgQuality = round(quality / float64(scored))
		s.AvgBusinessValue = round(value / float64(scored))
	}

	for name, st := range s.Engines {
		st.SuccessRate = round(float64(st.Successes) / float64(st.Requests))
		st.AvgResponseTime = round((engineElapsed[name] / time.Duration(st.Requests)).Seconds())
		st.Reliability = Reliability(st.SuccessRate)
		s.Engines[name] = st
	}

	if s.SuccessRate < r.alertThreshold {
		s.Status = StatusDegraded
		s.Alerts = append(s.Alerts, fmt.Sprintf("low success rate: %.0f%%", s.SuccessRate*100))
	}
	if time.Duration(s.AvgResponseTime*float64(time.Second)) > slowResponseAlert {
		s.Alerts = append(s.Alerts, fmt.Sprintf("slow average response: %.2fs", s.AvgResponseTime))
	}
	if len(history) > cacheAlertMinimum && s.CacheHitRate < lowCacheHitRate {
		s.Alerts = append(s.Alerts, fmt.Sprintf("low cache hit rate: %.0f%%", s.CacheHitRate*100))
	}
	for _, name := range sortedKeys(s.Engines) {
		if st := s.Engines[name]; st.Reliability == ReliabilityLow {
			s.Alerts = append(s.Alerts, fmt.Sprintf("engine %s unreliable: %.0f%% success", name, st.SuccessRate*100))
		}
	}
	return s
}

func sortedKeys(m map[string]EngineStats) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
