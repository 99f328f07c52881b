package metrics

import "github.com/cliffyan/go-biz-search/internal/search"

// Multi 把事件依次交给多个 sink，一个 sink panic 不影响其他 sink
type Multi []search.MetricsSink

// Record 实现 search.MetricsSink
func (m Multi) Record(ev search.MetricsEvent) {
	for _, sink := range m {
		if sink == nil {
			continue
		}
		func() {
			defer func() { _ = recover() }()
			sink.Record(ev)
		}()
	}
}
