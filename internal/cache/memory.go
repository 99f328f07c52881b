package cache

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// DefaultMaxEntries 内存缓存默认容量
const DefaultMaxEntries = 1000

// Entry 缓存条目
type Entry struct {
	ResultSet *search.ResultSet
	CreatedAt time.Time
	TTL       time.Duration
}

// Expired 条目在 now 时刻是否已过期
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// slot 单个 key 的存储位置，拥有独立的锁
type slot struct {
	mu    sync.RWMutex
	entry *Entry
}

// Memory 进程内 TTL 缓存。
// map 锁只在查找或创建 slot 时持有，读写条目只锁对应的 slot，不同 key 互不阻塞。
type Memory struct {
	mu         sync.Mutex
	slots      map[string]*slot
	maxEntries int
	now        func() time.Time
	logger     *logrus.Logger
}

// MemoryOption 内存缓存选项
type MemoryOption func(*Memory)

// WithMaxEntries 设置容量上限，<= 0 表示不限制
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) { m.maxEntries = n }
}

// WithClock 替换时钟，测试用
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// WithLogger 设置日志
func WithLogger(logger *logrus.Logger) MemoryOption {
	return func(m *Memory) { m.logger = logger }
}

// NewMemory 创建内存缓存
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		slots:      make(map[string]*slot),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logrus.New()
		m.logger.SetOutput(io.Discard)
	}
	return m
}

func memoryKey(normalizedQuery string, maxResults int) string {
	return fmt.Sprintf("%d\x00%s", maxResults, normalizedQuery)
}

// Get 返回未过期的条目副本，未命中返回 (nil, nil)
func (m *Memory) Get(_ context.Context, normalizedQuery string, maxResults int) (*search.ResultSet, error) {
	m.mu.Lock()
	s := m.slots[memoryKey(normalizedQuery, maxResults)]
	m.mu.Unlock()
	if s == nil {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil || s.entry.Expired(m.now()) {
		return nil, nil
	}
	return s.entry.ResultSet.Clone(), nil
}

// Put 写入或覆盖条目
func (m *Memory) Put(_ context.Context, normalizedQuery string, maxResults int, rs *search.ResultSet, ttl time.Duration) error {
	if rs == nil {
		return fmt.Errorf("cache put: nil result set")
	}
	key := memoryKey(normalizedQuery, maxResults)
	entry := &Entry{ResultSet: rs.Clone(), CreatedAt: m.now(), TTL: ttl}

	for {
		s, created := m.slotFor(key, entry)
		if created {
			return nil
		}
		s.mu.Lock()
		s.entry = entry
		s.mu.Unlock()

		// 写入期间 slot 可能已被淘汰，此时重新插入
		m.mu.Lock()
		live := m.slots[key] == s
		m.mu.Unlock()
		if live {
			return nil
		}
	}
}

// slotFor 查找 slot；不存在时带着 entry 创建，必要时先腾出空间
func (m *Memory) slotFor(key string, entry *Entry) (*slot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[key]; ok {
		return s, false
	}
	if m.maxEntries > 0 && len(m.slots) >= m.maxEntries {
		m.evictLocked()
	}
	m.slots[key] = &slot{entry: entry}
	return m.slots[key], true
}

// evictLocked 先清理空的和过期的条目，仍然满则淘汰最早写入的条目。调用方持有 m.mu
func (m *Memory) evictLocked() {
	now := m.now()
	var oldestKey string
	var oldest time.Time
	for key, s := range m.slots {
		s.mu.RLock()
		e := s.entry
		s.mu.RUnlock()
		if e == nil || e.Expired(now) {
			delete(m.slots, key)
			continue
		}
		if oldestKey == "" || e.CreatedAt.Before(oldest) {
			oldestKey, oldest = key, e.CreatedAt
		}
	}
	if len(m.slots) >= m.maxEntries && oldestKey != "" {
		delete(m.slots, oldestKey)
		m.logger.Debugf("🗑️ Cache full, evicted oldest entry")
	}
}

// Sweep 删除所有过期条目，返回删除数量
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, s := range m.slots {
		s.mu.RLock()
		e := s.entry
		s.mu.RUnlock()
		if e == nil || e.Expired(now) {
			delete(m.slots, key)
			removed++
		}
	}
	return removed
}

// Len 当前条目数（包含尚未清理的过期条目）
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

// RunJanitor 定期清理过期条目，直到 ctx 结束
func (m *Memory) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debugf("🧹 Cache janitor removed %d expired entries", n)
			}
		}
	}
}
