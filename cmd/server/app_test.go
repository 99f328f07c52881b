package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliffyan/go-biz-search/internal/config"
	"github.com/cliffyan/go-biz-search/internal/search"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})
	return l
}

func TestNewApp_MemoryCacheWithMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Engines.Enabled = []string{"bing", "duckduckgo"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, err := newApp(ctx, cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"bing", "duckduckgo"}, a.orchestrator.Engines())
	assert.NotNil(t, a.recorder)
	assert.NotNil(t, a.prometheus)
	assert.Equal(t, time.Hour, a.orchestrator.Options().CacheTTL)
}

func TestNewApp_NoCacheNoMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = "none"
	cfg.Metrics.Enabled = false

	a, err := newApp(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.recorder)
	assert.Nil(t, a.prometheus)
	assert.Zero(t, a.orchestrator.Options().CacheTTL)
}

func TestNewApp_UnreachableRedisStillStarts(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = "127.0.0.1:1"

	a, err := newApp(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	a.Close()
}

func TestPrintResultSet(t *testing.T) {
	rs := &search.ResultSet{
		Query:        "上海咖啡",
		Success:      true,
		TotalResults: 1,
		Results: []search.ScoredResult{{
			RawResult:     search.RawResult{Title: "上海咖啡地图", URL: "https://www.zhihu.com/q/1", Engine: "baidu"},
			BusinessValue: 88.5,
			IsChinese:     true,
		}},
		Engines: []search.EngineStatus{{Engine: "bing", OK: false, Reason: "timeout"}},
	}

	var buf bytes.Buffer
	printResultSet(&buf, rs)

	out := buf.String()
	assert.Contains(t, out, "[88.5] 上海咖啡地图")
	assert.Contains(t, out, "source=baidu")
	assert.Contains(t, out, "bing failed: timeout")

	buf.Reset()
	printResultSet(&buf, &search.ResultSet{Error: "all engines failed"})
	assert.Contains(t, buf.String(), "all engines failed")
}
