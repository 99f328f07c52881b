package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliffyan/go-biz-search/internal/config"
)

func TestNewRegistry_DefaultEngines(t *testing.T) {
	cfg := config.Default()
	cfg.Engines.Breaker.Enabled = false

	r, err := NewRegistry(cfg, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{NameBing, NameBaidu, NameSogou, NameDuckDuckGo}, r.Names())
	adapters := r.Adapters()
	require.Len(t, adapters, 4)
	assert.IsType(t, &BingEngine{}, adapters[0])
	assert.IsType(t, &DuckDuckGoEngine{}, adapters[3])
}

func TestNewRegistry_WrapsWithBreaker(t *testing.T) {
	cfg := config.Default()
	cfg.Engines.Enabled = []string{NameSogou}

	r, err := NewRegistry(cfg, nil)
	require.NoError(t, err)

	adapters := r.Adapters()
	require.Len(t, adapters, 1)
	assert.IsType(t, &Breaker{}, adapters[0])
	assert.Equal(t, NameSogou, adapters[0].Name())
}

func TestNewRegistry_BrowserEnginesShareManager(t *testing.T) {
	cfg := config.Default()
	cfg.Engines.Breaker.Enabled = false
	cfg.Engines.Enabled = []string{NameBrowserGoogle, NameBrowserBaidu}

	r, err := NewRegistry(cfg, nil)
	require.NoError(t, err)
	defer r.Close()

	adapters := r.Adapters()
	require.Len(t, adapters, 2)
	g := adapters[0].(*BrowserEngine)
	b := adapters[1].(*BrowserEngine)
	assert.Same(t, g.browser, b.browser)
	assert.False(t, g.browser.IsInitialized())
}

func TestNewRegistry_UnknownEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Engines.Enabled = []string{NameBing, "yahoo"}

	_, err := NewRegistry(cfg, nil)
	assert.ErrorContains(t, err, "unknown search engine: yahoo")
}

func TestNewRegistry_DirectSiteEngines(t *testing.T) {
	cfg := config.Default()
	cfg.Engines.Breaker.Enabled = false
	cfg.Engines.Enabled = []string{NameZhihu, NameDouban, NameZhidao}

	r, err := NewRegistry(cfg, nil)
	require.NoError(t, err)
	defer r.Close()

	adapters := r.Adapters()
	require.Len(t, adapters, 3)
	assert.IsType(t, &ZhihuEngine{}, adapters[0])
	assert.IsType(t, &DoubanEngine{}, adapters[1])
	assert.IsType(t, &ZhidaoEngine{}, adapters[2])
}
