package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// countingAdapter 统计被调用次数的测试引擎
type countingAdapter struct {
	calls atomic.Int32
}

func (a *countingAdapter) Name() string { return "bing" }

func (a *countingAdapter) Search(context.Context, string, int) ([]search.RawResult, error) {
	a.calls.Add(1)
	return []search.RawResult{{Title: "上海咖啡店推荐", URL: "https://www.example.com/coffee", Snippet: "精品咖啡"}}, nil
}

func TestOrchestrator_MemoryCacheExpiry(t *testing.T) {
	clock := newClock()
	adapter := &countingAdapter{}
	opts := search.DefaultOptions()
	opts.CacheTTL = time.Minute
	o, err := search.NewOrchestrator(opts, []search.Adapter{adapter}, NewMemory(WithClock(clock.Now)), nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	rs, err := o.Search(ctx, "上海 咖啡", 5, 0)
	require.NoError(t, err)
	assert.False(t, rs.Performance.CacheHit)
	assert.Equal(t, int32(1), adapter.calls.Load())

	clock.Advance(59 * time.Second)
	rs, err = o.Search(ctx, "上海 咖啡", 5, 0)
	require.NoError(t, err)
	assert.True(t, rs.Performance.CacheHit)
	assert.Equal(t, int32(1), adapter.calls.Load())

	clock.Advance(2 * time.Second)
	rs, err = o.Search(ctx, "上海 咖啡", 5, 0)
	require.NoError(t, err)
	assert.False(t, rs.Performance.CacheHit, "过期后重新搜索")
	assert.Equal(t, int32(2), adapter.calls.Load())

	rs, err = o.Search(ctx, "上海 咖啡", 5, 0)
	require.NoError(t, err)
	assert.True(t, rs.Performance.CacheHit, "重新写入后再次命中")
	assert.Equal(t, int32(2), adapter.calls.Load())
}
