package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDefaultProducesValidOptions(t *testing.T) {
	cfg := Default()
	cfg.validate(quietLogger())
	require.NoError(t, cfg.SearchOptions().Validate())
	assert.Equal(t, 0.15, cfg.SearchOptions().Scoring.ChineseThreshold)
}

func TestParse_OverridesDefaults(t *testing.T) {
	data := []byte(`
server:
  port: 8080
orchestrator:
  max_concurrent: 3
  per_engine_timeout: 5s
  global_deadline: 8s
scoring:
  premium_domains: [zhihu.com, 36kr.com]
  weights:
    date: 20
cache:
  backend: redis
  ttl: 10m
engines:
  enabled: [sogou, bing, bogus, bing]
`)
	cfg, err := Parse(data, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Orchestrator.MaxConcurrent)
	assert.Equal(t, 5*time.Second, cfg.Orchestrator.PerEngineTimeout)
	assert.Equal(t, 8*time.Second, cfg.Orchestrator.GlobalDeadline)
	assert.Equal(t, []string{"zhihu.com", "36kr.com"}, cfg.Scoring.PremiumDomains)
	assert.Equal(t, 20.0, cfg.Scoring.Weights.Date)
	assert.Equal(t, Default().Scoring.Weights.Numeric, cfg.Scoring.Weights.Numeric)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.SearchOptions().CacheTTL)
	assert.Equal(t, []string{"sogou", "bing"}, cfg.Engines.Enabled)
}

func TestParse_ProfileThenExplicitValues(t *testing.T) {
	cfg, err := Parse([]byte("profile: development\norchestrator:\n  max_concurrent: 4\n"), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Profile)
	assert.Equal(t, 4, cfg.Orchestrator.MaxConcurrent, "explicit value wins over profile")
	assert.Equal(t, 10*time.Second, cfg.Orchestrator.PerEngineTimeout)
	assert.Equal(t, 13*time.Second, cfg.Orchestrator.GlobalDeadline)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 0.2, cfg.Scoring.ChineseThreshold)
	assert.Equal(t, 0.0, cfg.Scoring.PremiumBoost)
}

func TestApplyProfile(t *testing.T) {
	for _, name := range ValidProfiles {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			require.NoError(t, cfg.ApplyProfile(name))
			cfg.validate(quietLogger())
			assert.NoError(t, cfg.SearchOptions().Validate())
			assert.Greater(t, cfg.Orchestrator.GlobalDeadline, cfg.Orchestrator.PerEngineTimeout)
		})
	}
	assert.Error(t, Default().ApplyProfile("staging"))
}

func TestValidate_FixesBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 70000
	cfg.Orchestrator.MaxConcurrent = 0
	cfg.Orchestrator.PerEngineTimeout = -time.Second
	cfg.Scoring.ChineseThreshold = 1.5
	cfg.Cache.Backend = "memcached"
	cfg.Engines.Enabled = []string{"altavista"}
	cfg.Log.Level = "loud"
	cfg.validate(quietLogger())

	def := Default()
	assert.Equal(t, def.Server.Port, cfg.Server.Port)
	assert.Equal(t, def.Orchestrator.MaxConcurrent, cfg.Orchestrator.MaxConcurrent)
	assert.Equal(t, def.Orchestrator.PerEngineTimeout, cfg.Orchestrator.PerEngineTimeout)
	assert.Equal(t, def.Scoring.ChineseThreshold, cfg.Scoring.ChineseThreshold)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, def.Engines.Enabled, cfg.Engines.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestSearchOptions_NoCacheBackendDisablesTTL(t *testing.T) {
	cfg := Default()
	cfg.Cache.Backend = "none"
	assert.Equal(t, time.Duration(0), cfg.SearchOptions().CacheTTL)
}

func TestLoad_FromConfigFileEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg := Load(quietLogger())
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"), quietLogger())
	assert.Error(t, err)
}

func TestLoadFromFile_Example(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join("..", "..", "configs", "config.example.yaml"), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Profile)
	assert.Equal(t, 12*time.Second, cfg.Orchestrator.PerEngineTimeout)
	assert.Equal(t, []string{"bing", "baidu", "sogou", "duckduckgo"}, cfg.Engines.Enabled)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.NoError(t, cfg.SearchOptions().Validate())
}
