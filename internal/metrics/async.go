package metrics

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// 默认事件缓冲大小
const DefaultBufferSize = 256

// Async 把事件放进缓冲通道，由单个 goroutine 交给下游 sink。
// 缓冲满时丢弃事件，Record 从不阻塞。
type Async struct {
	next    search.MetricsSink
	events  chan search.MetricsEvent
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
	logger  *logrus.Logger
}

// NewAsync 创建异步分发器并启动后台 goroutine
func NewAsync(next search.MetricsSink, bufferSize int, logger *logrus.Logger) *Async {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	a := &Async{
		next:   next,
		events: make(chan search.MetricsEvent, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go a.loop()
	return a
}

// Record 非阻塞地投递事件
func (a *Async) Record(ev search.MetricsEvent) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return
	}
	select {
	case a.events <- ev:
	default:
		if a.dropped.Add(1)%100 == 1 {
			a.logger.Warnf("⚠️ Metrics buffer full, dropping events (dropped so far: %d)", a.dropped.Load())
		}
	}
}

// Dropped 被丢弃的事件数
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Close 停止接收事件，等待缓冲中的事件处理完
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.closed = true
	close(a.events)
	a.mu.Unlock()
	<-a.done
}

func (a *Async) loop() {
	defer close(a.done)
	for ev := range a.events {
		a.deliver(ev)
	}
}

func (a *Async) deliver(ev search.MetricsEvent) {
	defer func() {
		if p := recover(); p != nil {
			a.logger.Errorf("❌ Metrics sink panicked: %v", p)
		}
	}()
	a.next.Record(ev)
}
