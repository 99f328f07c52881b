package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// cache 写入在主截止时间之外单独计时
const cacheStoreTimeout = 2 * time.Second

// Orchestrator 并发调度所有引擎，合并、打分、排序并缓存结果。
// 跨调用共享的可变状态只有 Cache。
type Orchestrator struct {
	opts     Options
	adapters []Adapter
	scorer   *Scorer
	cache    Cache
	sink     MetricsSink
	logger   *logrus.Logger
}

type indexedOutcome struct {
	idx     int
	outcome EngineOutcome
}

// NewOrchestrator 创建编排器。cache、sink、logger 都可以为 nil
func NewOrchestrator(opts Options, adapters []Adapter, cache Cache, sink MetricsSink, logger *logrus.Logger) (*Orchestrator, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one engine adapter is required")
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Orchestrator{
		opts:     opts,
		adapters: append([]Adapter(nil), adapters...),
		scorer:   NewScorer(opts.Scoring),
		cache:    cache,
		sink:     sink,
		logger:   logger,
	}, nil
}

// Engines 返回已配置的引擎名称（调度顺序）
func (o *Orchestrator) Engines() []string {
	names := make([]string, len(o.adapters))
	for i, a := range o.adapters {
		names[i] = a.Name()
	}
	return names
}

// Options 返回构造时的配置
func (o *Orchestrator) Options() Options {
	return o.opts
}

// Search 执行一次聚合搜索。
// deadline <= 0 时使用 GlobalDeadline。所有引擎都失败时返回 Success=false 的结果集
// 以及包装了 ErrAllEnginesFailed 的错误。
func (o *Orchestrator) Search(ctx context.Context, query string, maxResults int, deadline time.Duration) (*ResultSet, error) {
	start := time.Now()

	q, err := NewQuery(query, maxResults)
	if err != nil {
		return nil, err
	}
	if deadline <= 0 {
		deadline = o.opts.GlobalDeadline
	}

	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if cached := o.lookup(runCtx, q); cached != nil {
		cached.Performance = PerformanceRecord{
			ExecutionTime: time.Since(start),
			CacheHit:      true,
		}
		o.logger.Infof("🎯 Cache hit for query: %s", q.Text())
		o.emit(q, cached)
		return cached, nil
	}

	o.logger.Infof("🚀 Parallel search for: '%s' (max_results: %d, engines: %d)", q.Text(), q.MaxResults, len(o.adapters))

	outcomes := o.dispatch(runCtx, q)

	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, fmt.Errorf("search %q cancelled: %w", q.Text(), ctx.Err())
	}

	rs := o.assemble(q, outcomes)
	rs.Performance.ExecutionTime = time.Since(start)

	if !rs.Success {
		o.logger.Errorf("❌ Search failed for '%s': %s", q.Text(), rs.Error)
		o.emit(q, rs)
		return rs, fmt.Errorf("search %q: %w", q.Text(), ErrAllEnginesFailed)
	}

	o.store(ctx, q, rs)
	o.logger.Infof("✅ Search completed in %s: %d results (%d chinese, %d premium), engines ok=%d failed=%d",
		rs.Performance.ExecutionTime.Round(time.Millisecond), rs.TotalResults, rs.ChineseResults, rs.PremiumResults,
		rs.Performance.EnginesSucceeded, rs.Performance.EnginesFailed)
	o.emit(q, rs)
	return rs, nil
}

// lookup 查询缓存，缓存不可用时按未命中处理
func (o *Orchestrator) lookup(ctx context.Context, q Query) *ResultSet {
	if o.cache == nil {
		return nil
	}
	rs, err := o.cache.Get(ctx, q.Normalized, q.MaxResults)
	if err != nil {
		o.logger.WithError(err).Warnf("⚠️ Cache unavailable, treating lookup as miss")
		return nil
	}
	return rs.Clone()
}

// store 写入缓存，失败只记录日志
func (o *Orchestrator) store(ctx context.Context, q Query, rs *ResultSet) {
	if o.cache == nil || o.opts.CacheTTL <= 0 {
		return
	}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheStoreTimeout)
	defer cancel()
	if err := o.cache.Put(storeCtx, q.Normalized, q.MaxResults, rs.Clone(), o.opts.CacheTTL); err != nil {
		o.logger.WithError(err).Warnf("⚠️ Cache unavailable, result not stored")
	}
}

// dispatch 并发调用所有引擎，等待全部返回或 ctx 结束。
// 结果通道带缓冲，被放弃的 goroutine 返回时不会阻塞。
func (o *Orchestrator) dispatch(ctx context.Context, q Query) []EngineOutcome {
	start := time.Now()
	outcomes := make([]EngineOutcome, len(o.adapters))
	received := make([]bool, len(o.adapters))
	done := make(chan indexedOutcome, len(o.adapters))
	sem := semaphore.NewWeighted(int64(o.opts.MaxConcurrent))

	for i, a := range o.adapters {
		outcomes[i] = EngineOutcome{Engine: a.Name()}
		go o.run(ctx, sem, i, a, q, done)
	}

	for pending := len(o.adapters); pending > 0; {
		select {
		case r := <-done:
			outcomes[r.idx] = r.outcome
			received[r.idx] = true
			pending--
			o.logOutcome(r.outcome)
		case <-ctx.Done():
			abandonErr := ErrEngineTimeout
			if errors.Is(ctx.Err(), context.Canceled) {
				abandonErr = ctx.Err()
			}
			for i := range outcomes {
				if received[i] {
					continue
				}
				outcomes[i].Err = &EngineError{Engine: outcomes[i].Engine, Reason: "abandoned", Err: abandonErr}
				outcomes[i].Elapsed = time.Since(start)
				o.logger.WithField("engine", outcomes[i].Engine).Warnf("⏱️ Engine abandoned at deadline")
			}
			return outcomes
		}
	}
	return outcomes
}

func (o *Orchestrator) run(ctx context.Context, sem *semaphore.Weighted, idx int, a Adapter, q Query, done chan<- indexedOutcome) {
	started := time.Now()
	results, err := o.call(ctx, sem, a, q)
	done <- indexedOutcome{
		idx: idx,
		outcome: EngineOutcome{
			Engine:  a.Name(),
			Results: results,
			Err:     err,
			Elapsed: time.Since(started),
		},
	}
}

// call 在并发槽位内调用单个引擎，超时取 min(剩余时间, PerEngineTimeout)
func (o *Orchestrator) call(ctx context.Context, sem *semaphore.Weighted, a Adapter, q Query) (results []RawResult, err error) {
	name := a.Name()
	defer func() {
		if p := recover(); p != nil {
			results = nil
			err = &EngineError{Engine: name, Reason: "panic", Err: fmt.Errorf("%v", p)}
		}
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, &EngineError{Engine: name, Reason: "queued", Err: fmt.Errorf("%w: %v", ErrEngineTimeout, err)}
	}
	defer sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, o.opts.PerEngineTimeout)
	defer cancel()

	raw, err := a.Search(callCtx, q.Text(), q.MaxResults)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &EngineError{Engine: name, Reason: "timeout", Err: fmt.Errorf("%w: %v", ErrEngineTimeout, err)}
		}
		return nil, &EngineError{Engine: name, Reason: "error", Err: err}
	}

	results = make([]RawResult, len(raw))
	for i, r := range raw {
		r.Engine = name
		results[i] = r
	}
	return results, nil
}

func (o *Orchestrator) logOutcome(out EngineOutcome) {
	entry := o.logger.WithFields(logrus.Fields{
		"engine":  out.Engine,
		"elapsed": out.Elapsed.Round(time.Millisecond),
	})
	if out.OK() {
		entry.Infof("✅ %s returned %d results", out.Engine, len(out.Results))
		return
	}
	entry.Warnf("❌ %s failed: %s", out.Engine, out.Reason())
}

// assemble 合并、打分、过滤、排序
func (o *Orchestrator) assemble(q Query, outcomes []EngineOutcome) *ResultSet {
	statuses := make([]EngineStatus, len(outcomes))
	var succeeded, failed int
	var reasons []string
	for i, out := range outcomes {
		statuses[i] = out.status()
		if out.OK() {
			succeeded++
			continue
		}
		failed++
		reasons = append(reasons, out.Engine+": "+out.Reason())
	}

	if succeeded == 0 {
		return &ResultSet{
			Query:   q.Text(),
			Success: false,
			Error:   "all engines failed (" + strings.Join(reasons, "; ") + ")",
			Results: []ScoredResult{},
			Engines: statuses,
			Performance: PerformanceRecord{
				EnginesFailed: failed,
			},
		}
	}

	merged := Merge(outcomes, o.opts.PriorityEngines)
	scored := make([]ScoredResult, len(merged))
	for i, r := range merged {
		scored[i] = o.scorer.Score(r)
	}
	if o.opts.FilterBelowThreshold {
		scored = FilterBelow(scored, o.opts.QualityThreshold)
	}

	rs := Assemble(q.Text(), Rank(scored, q.MaxResults))
	rs.Engines = statuses
	rs.Performance.EnginesSucceeded = succeeded
	rs.Performance.EnginesFailed = failed
	return rs
}

// emit 在返回前按搜索顺序同步发送指标事件，sink 缺失或 panic 都不影响搜索
func (o *Orchestrator) emit(q Query, rs *ResultSet) {
	if o.sink == nil {
		return
	}
	summary := Summarize(rs)
	ev := MetricsEvent{
		ID:               uuid.NewString(),
		Timestamp:        time.Now(),
		Query:            q.Text(),
		CacheHit:         rs.Performance.CacheHit,
		Success:          rs.Success,
		EnginesSucceeded: rs.Performance.EnginesSucceeded,
		EnginesFailed:    rs.Performance.EnginesFailed,
		ExecutionTime:    rs.Performance.ExecutionTime,
		ResultCount:      rs.TotalResults,
		ChineseResults:   rs.ChineseResults,
		PremiumResults:   rs.PremiumResults,
		AvgQuality:       summary.AvgQuality,
		AvgBusinessValue: summary.AvgBusinessValue,
	}
	if !rs.Performance.CacheHit {
		ev.Engines = append([]EngineStatus(nil), rs.Engines...)
	}

	defer func() {
		if p := recover(); p != nil {
			o.logger.Debugf("metrics sink panicked: %v", p)
		}
	}()
	o.sink.Record(ev)
}
