package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliffyan/go-biz-search/internal/search"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func resultSet(query string, urls ...string) *search.ResultSet {
	rs := &search.ResultSet{Query: query, Success: true, Results: []search.ScoredResult{}}
	for _, u := range urls {
		rs.Results = append(rs.Results, search.ScoredResult{RawResult: search.RawResult{URL: u}})
	}
	rs.TotalResults = len(rs.Results)
	return rs
}

func TestMemory_GetPut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	got, err := m.Get(ctx, "golang", 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, m.Put(ctx, "golang", 5, resultSet("golang", "https://a.com"), time.Hour))

	got, err = m.Get(ctx, "golang", 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://a.com", got.Results[0].URL)

	// max_results 不同视为不同的 key
	got, err = m.Get(ctx, "golang", 10)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemory_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "q", 5, resultSet("q", "https://old.com"), time.Hour))
	require.NoError(t, m.Put(ctx, "q", 5, resultSet("q", "https://new.com"), time.Hour))

	got, err := m.Get(ctx, "q", 5)
	require.NoError(t, err)
	assert.Equal(t, "https://new.com", got.Results[0].URL)
	assert.Equal(t, 1, m.Len())
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m := NewMemory(WithClock(clock.Now))
	require.NoError(t, m.Put(ctx, "q", 5, resultSet("q", "https://a.com"), time.Minute))

	clock.Advance(time.Minute)
	got, _ := m.Get(ctx, "q", 5)
	assert.NotNil(t, got, "entry is valid up to and including its TTL")

	clock.Advance(time.Millisecond)
	got, _ = m.Get(ctx, "q", 5)
	assert.Nil(t, got)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rs := resultSet("q", "https://a.com")
	require.NoError(t, m.Put(ctx, "q", 5, rs, time.Hour))

	rs.Results[0].URL = "https://mutated-before.com"
	got, _ := m.Get(ctx, "q", 5)
	got.Results[0].URL = "https://mutated-after.com"

	again, _ := m.Get(ctx, "q", 5)
	assert.Equal(t, "https://a.com", again.Results[0].URL)
}

func TestMemory_EvictsExpiredThenOldest(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m := NewMemory(WithClock(clock.Now), WithMaxEntries(2))

	require.NoError(t, m.Put(ctx, "a", 5, resultSet("a"), time.Hour))
	clock.Advance(time.Second)
	require.NoError(t, m.Put(ctx, "b", 5, resultSet("b"), time.Hour))
	clock.Advance(time.Second)
	require.NoError(t, m.Put(ctx, "c", 5, resultSet("c"), time.Hour))

	assert.Equal(t, 2, m.Len())
	got, _ := m.Get(ctx, "a", 5)
	assert.Nil(t, got, "oldest entry evicted")
	got, _ = m.Get(ctx, "c", 5)
	assert.NotNil(t, got)

	// 优先淘汰过期条目
	require.NoError(t, m.Put(ctx, "short", 5, resultSet("short"), time.Millisecond))
	assert.Equal(t, 2, m.Len())
	clock.Advance(time.Second)
	require.NoError(t, m.Put(ctx, "d", 5, resultSet("d"), time.Hour))
	got, _ = m.Get(ctx, "c", 5)
	assert.NotNil(t, got)
}

func TestMemory_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	m := NewMemory(WithClock(clock.Now))
	require.NoError(t, m.Put(ctx, "short", 5, resultSet("short"), time.Second))
	require.NoError(t, m.Put(ctx, "long", 5, resultSet("long"), time.Hour))

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestMemory_RunJanitorStopsOnCancel(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithMaxEntries(50))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("q%d", (i*j)%80)
				if j%3 == 0 {
					_ = m.Put(ctx, key, 5, resultSet(key, "https://"+key+".com"), time.Hour)
					continue
				}
				if got, err := m.Get(ctx, key, 5); err == nil && got != nil {
					assert.Equal(t, "https://"+key+".com", got.Results[0].URL)
				}
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, m.Len(), 50)
}

func TestMemory_PutNil(t *testing.T) {
	assert.Error(t, NewMemory().Put(context.Background(), "q", 5, nil, time.Hour))
}

func TestMemory_EvictsEmptySlots(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithMaxEntries(2))
	m.slots["empty-1"] = &slot{}
	m.slots["empty-2"] = &slot{}

	require.NoError(t, m.Put(ctx, "a", 5, resultSet("a"), time.Hour))

	assert.Equal(t, 1, m.Len())
	got, _ := m.Get(ctx, "a", 5)
	assert.NotNil(t, got)
}

func TestMemory_PutSurvivesConcurrentEviction(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "q", 5, resultSet("q", "https://old.com"), time.Hour))

	key := memoryKey("q", 5)
	m.mu.Lock()
	s := m.slots[key]
	m.mu.Unlock()

	// 持有读锁让 Put 停在写 slot 之前，期间把 slot 从 map 里移走
	s.mu.RLock()
	done := make(chan error, 1)
	go func() {
		done <- m.Put(ctx, "q", 5, resultSet("q", "https://new.com"), time.Hour)
	}()
	time.Sleep(20 * time.Millisecond)
	m.mu.Lock()
	delete(m.slots, key)
	m.mu.Unlock()
	s.mu.RUnlock()

	require.NoError(t, <-done)
	got, err := m.Get(ctx, "q", 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://new.com", got.Results[0].URL)
}
