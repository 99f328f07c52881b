package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// Config 应用配置
type Config struct {
	// Profile 预设：development、production、high_performance，为空时只用默认值
	Profile string `yaml:"profile"`

	// 服务器配置
	Server ServerConfig `yaml:"server"`

	// 代理配置
	Proxy ProxyConfig `yaml:"proxy"`

	// 编排器配置
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// 打分配置
	Scoring ScoringConfig `yaml:"scoring"`

	// 缓存配置
	Cache CacheConfig `yaml:"cache"`

	// 搜索引擎配置
	Engines EnginesConfig `yaml:"engines"`

	// 指标配置
	Metrics MetricsConfig `yaml:"metrics"`

	// MCP 配置
	MCP MCPConfig `yaml:"mcp"`

	// 日志配置
	Log LogConfig `yaml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int        `yaml:"port"`
	Host string     `yaml:"host"`
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Origin  string `yaml:"origin"`
}

// ProxyConfig 代理配置
type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// OrchestratorConfig 并发和超时配置
type OrchestratorConfig struct {
	MaxConcurrent        int           `yaml:"max_concurrent"`
	PerEngineTimeout     time.Duration `yaml:"per_engine_timeout"`
	GlobalDeadline       time.Duration `yaml:"global_deadline"`
	DefaultMaxResults    int           `yaml:"default_max_results"`
	PriorityEngines      []string      `yaml:"priority_engines"`
	QualityThreshold     float64       `yaml:"quality_threshold"`
	FilterBelowThreshold bool          `yaml:"filter_below_threshold"`
	BatchConcurrency     int           `yaml:"batch_concurrency"`
}

// ScoringConfig 打分配置
type ScoringConfig struct {
	PremiumDomains   []string       `yaml:"premium_domains"`
	ChineseThreshold float64        `yaml:"chinese_threshold"`
	PremiumBoost     float64        `yaml:"premium_boost"`
	ChineseBoost     float64        `yaml:"chinese_boost"`
	PreferChinese    bool           `yaml:"prefer_chinese"`
	Weights          search.Weights `yaml:"weights"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	// Backend memory、redis 或 none
	Backend         string        `yaml:"backend"`
	TTL             time.Duration `yaml:"ttl"`
	MaxEntries      int           `yaml:"max_entries"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
	Redis           RedisConfig   `yaml:"redis"`
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// EnginesConfig 搜索引擎配置
type EnginesConfig struct {
	// Enabled 启用的引擎，顺序即调度顺序
	Enabled []string `yaml:"enabled"`
	// MinRequestInterval 同一引擎两次请求的最小间隔
	MinRequestInterval time.Duration `yaml:"min_request_interval"`
	MaxRetries         int           `yaml:"max_retries"`
	MaxPages           int           `yaml:"max_pages"`
	Breaker            BreakerConfig `yaml:"breaker"`
	Browser            BrowserConfig `yaml:"browser"`
}

// BreakerConfig 熔断配置
type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	Headless bool `yaml:"headless"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled    bool `yaml:"enabled"`
	Prometheus bool `yaml:"prometheus"`
	// Retention 业务指标保留的最近搜索条数
	Retention  int `yaml:"retention"`
	BufferSize int `yaml:"buffer_size"`
	// AlertThreshold 成功率低于该值时告警
	AlertThreshold float64 `yaml:"alert_threshold"`
}

// MCPConfig MCP 协议配置
type MCPConfig struct {
	// 服务器信息
	ServerName    string `yaml:"server_name"`
	ServerVersion string `yaml:"server_version"`

	// 工具名称配置
	Tools MCPToolsConfig `yaml:"tools"`
}

// MCPToolsConfig MCP 工具名称配置
type MCPToolsConfig struct {
	SearchName        string `yaml:"search_name"`
	SearchDescription string `yaml:"search_description"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
}

// ValidEngines 有效的搜索引擎列表
var ValidEngines = []string{"bing", "baidu", "sogou", "duckduckgo", "browser_bing", "browser_baidu", "browser_google", "zhihu", "douban", "baidu_zhidao"}

// ValidProfiles 有效的预设
var ValidProfiles = []string{"development", "production", "high_performance"}

// Default 返回默认配置
func Default() *Config {
	opts := search.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			Port: 3456,
			Host: "0.0.0.0",
			CORS: CORSConfig{
				Enabled: false,
				Origin:  "*",
			},
		},
		Proxy: ProxyConfig{
			Enabled: false,
			URL:     "http://127.0.0.1:7890",
		},
		Orchestrator: OrchestratorConfig{
			MaxConcurrent:     opts.MaxConcurrent,
			PerEngineTimeout:  opts.PerEngineTimeout,
			GlobalDeadline:    opts.GlobalDeadline,
			DefaultMaxResults: 10,
			PriorityEngines:   opts.PriorityEngines,
			QualityThreshold:  opts.QualityThreshold,
			BatchConcurrency:  3,
		},
		Scoring: ScoringConfig{
			PremiumDomains:   opts.Scoring.PremiumDomains,
			ChineseThreshold: opts.Scoring.ChineseThreshold,
			PremiumBoost:     opts.Scoring.PremiumBoost,
			ChineseBoost:     opts.Scoring.ChineseBoost,
			PreferChinese:    opts.Scoring.PreferChinese,
			Weights:          opts.Scoring.Weights,
		},
		Cache: CacheConfig{
			Backend:         "memory",
			TTL:             opts.CacheTTL,
			MaxEntries:      1000,
			JanitorInterval: 5 * time.Minute,
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "bizsearch",
			},
		},
		Engines: EnginesConfig{
			Enabled:            []string{"bing", "baidu", "sogou", "duckduckgo"},
			MinRequestInterval: time.Second,
			MaxRetries:         1,
			MaxPages:           3,
			Breaker: BreakerConfig{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenTimeout:         30 * time.Second,
			},
			Browser: BrowserConfig{
				Headless: true,
			},
		},
		Metrics: MetricsConfig{
			Enabled:        true,
			Prometheus:     true,
			Retention:      100,
			BufferSize:     256,
			AlertThreshold: 0.8,
		},
		MCP: MCPConfig{
			ServerName:    "go-biz-search",
			ServerVersion: "1.0.0",
			Tools: MCPToolsConfig{
				SearchName:        "search",
				SearchDescription: "Business-oriented web search across multiple engines (Bing, Baidu, Sogou, DuckDuckGo) with no API key required. Results are deduplicated and ranked by a business value score that favours Chinese-language and premium sources.",
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// configSearchPaths 配置文件搜索路径
var configSearchPaths = []string{
	"config.yaml",
	"config.yml",
	"configs/config.yaml",
	"configs/config.yml",
}

// Load 查找并加载配置文件，找不到或解析失败时使用默认配置。
// 支持通过 CONFIG_FILE 环境变量指定配置文件路径
func Load(logger *logrus.Logger) *Config {
	configPath := findConfigFile(logger)
	if configPath == "" {
		logger.Warnf("⚠️ No config file found, using default configuration")
		logger.Infof("💡 You can create a config.yaml file or set CONFIG_FILE environment variable")
		cfg := Default()
		cfg.validate(logger)
		return cfg
	}

	logger.Infof("📄 Loading configuration from: %s", configPath)
	cfg, err := LoadFromFile(configPath, logger)
	if err != nil {
		logger.Warnf("⚠️ %v, using defaults", err)
		cfg = Default()
		cfg.validate(logger)
	}
	return cfg
}

// LoadFromFile 从指定路径加载配置
func LoadFromFile(path string, logger *logrus.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	return Parse(data, logger)
}

// Parse 解析 YAML 配置。先读取 profile 并套用预设，再用文件中的值覆盖
func Parse(data []byte, logger *logrus.Logger) (*Config, error) {
	var head struct {
		Profile string `yaml:"profile"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}

	cfg := Default()
	if head.Profile != "" {
		if err := cfg.ApplyProfile(head.Profile); err != nil {
			logger.Warnf("⚠️ %v, ignoring profile", err)
		}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}

	cfg.validate(logger)
	return cfg, nil
}

// findConfigFile 查找配置文件
func findConfigFile(logger *logrus.Logger) string {
	// 优先使用环境变量指定的配置文件
	if envPath := os.Getenv("CONFIG_FILE"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		logger.Warnf("⚠️ CONFIG_FILE=%s not found, searching default paths", envPath)
	}

	workDir, _ := os.Getwd()
	searchDirs := []string{workDir}
	if execPath, err := os.Executable(); err == nil {
		if execDir := filepath.Dir(execPath); execDir != workDir {
			searchDirs = append(searchDirs, execDir)
		}
	}

	for _, dir := range searchDirs {
		for _, name := range configSearchPaths {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// validate 验证并修正配置
func (c *Config) validate(logger *logrus.Logger) {
	def := Default()

	if c.Profile != "" && !contains(ValidProfiles, c.Profile) {
		logger.Warnf("⚠️ Unknown profile %q ignored", c.Profile)
		c.Profile = ""
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		logger.Warnf("⚠️ Invalid port %d, using default %d", c.Server.Port, def.Server.Port)
		c.Server.Port = def.Server.Port
	}
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.CORS.Origin == "" {
		c.Server.CORS.Origin = def.Server.CORS.Origin
	}

	if c.Proxy.Enabled && c.Proxy.URL == "" {
		logger.Warnf("⚠️ Proxy enabled but URL is empty, using default")
		c.Proxy.URL = def.Proxy.URL
	}

	o := &c.Orchestrator
	if o.MaxConcurrent < 1 {
		logger.Warnf("⚠️ Invalid max_concurrent %d, using default %d", o.MaxConcurrent, def.Orchestrator.MaxConcurrent)
		o.MaxConcurrent = def.Orchestrator.MaxConcurrent
	}
	if o.PerEngineTimeout <= 0 {
		logger.Warnf("⚠️ Invalid per_engine_timeout %s, using default %s", o.PerEngineTimeout, def.Orchestrator.PerEngineTimeout)
		o.PerEngineTimeout = def.Orchestrator.PerEngineTimeout
	}
	if o.GlobalDeadline <= 0 {
		logger.Warnf("⚠️ Invalid global_deadline %s, using default %s", o.GlobalDeadline, def.Orchestrator.GlobalDeadline)
		o.GlobalDeadline = def.Orchestrator.GlobalDeadline
	}
	if o.DefaultMaxResults < 1 {
		o.DefaultMaxResults = def.Orchestrator.DefaultMaxResults
	}
	if o.QualityThreshold < 0 || o.QualityThreshold > 100 {
		logger.Warnf("⚠️ quality_threshold %v out of [0,100], using default %v", o.QualityThreshold, def.Orchestrator.QualityThreshold)
		o.QualityThreshold = def.Orchestrator.QualityThreshold
	}
	if o.BatchConcurrency < 1 {
		o.BatchConcurrency = def.Orchestrator.BatchConcurrency
	}

	if c.Scoring.ChineseThreshold < 0 || c.Scoring.ChineseThreshold > 1 {
		logger.Warnf("⚠️ chinese_threshold %v out of [0,1], using default %v", c.Scoring.ChineseThreshold, def.Scoring.ChineseThreshold)
		c.Scoring.ChineseThreshold = def.Scoring.ChineseThreshold
	}
	if c.Scoring.Weights.SnippetCapRunes <= 0 || c.Scoring.Weights.TitleCapRunes <= 0 {
		logger.Warnf("⚠️ Invalid scoring weight caps, using default weights")
		c.Scoring.Weights = def.Scoring.Weights
	}

	switch c.Cache.Backend {
	case "memory", "redis", "none":
	default:
		logger.Warnf("⚠️ Invalid cache backend %q, using %s", c.Cache.Backend, def.Cache.Backend)
		c.Cache.Backend = def.Cache.Backend
	}
	if c.Cache.TTL < 0 {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.Cache.JanitorInterval <= 0 {
		c.Cache.JanitorInterval = def.Cache.JanitorInterval
	}

	enabled := []string{}
	for _, e := range c.Engines.Enabled {
		e = strings.TrimSpace(e)
		switch {
		case !isValidEngine(e):
			logger.Warnf("⚠️ Invalid search engine ignored: %s", e)
		case contains(enabled, e):
			logger.Warnf("⚠️ Duplicate search engine ignored: %s", e)
		default:
			enabled = append(enabled, e)
		}
	}
	if len(enabled) == 0 {
		logger.Warnf("⚠️ No valid engines enabled, using defaults %v", def.Engines.Enabled)
		enabled = def.Engines.Enabled
	}
	c.Engines.Enabled = enabled
	if c.Engines.MaxRetries < 0 {
		c.Engines.MaxRetries = 0
	}
	if c.Engines.MaxPages < 1 {
		c.Engines.MaxPages = def.Engines.MaxPages
	}

	if c.Metrics.Retention < 1 {
		c.Metrics.Retention = def.Metrics.Retention
	}
	if c.Metrics.BufferSize < 1 {
		c.Metrics.BufferSize = def.Metrics.BufferSize
	}

	if c.MCP.ServerName == "" {
		c.MCP.ServerName = def.MCP.ServerName
	}
	if c.MCP.ServerVersion == "" {
		c.MCP.ServerVersion = def.MCP.ServerVersion
	}
	if c.MCP.Tools.SearchName == "" {
		c.MCP.Tools.SearchName = def.MCP.Tools.SearchName
	}
	if c.MCP.Tools.SearchDescription == "" {
		c.MCP.Tools.SearchDescription = def.MCP.Tools.SearchDescription
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		logger.Warnf("⚠️ Invalid log level %q, using %s", c.Log.Level, def.Log.Level)
		c.Log.Level = def.Log.Level
	}
}

// SearchOptions 转换为编排器配置
func (c *Config) SearchOptions() search.Options {
	ttl := c.Cache.TTL
	if c.Cache.Backend == "none" {
		ttl = 0
	}
	return search.Options{
		MaxConcurrent:    c.Orchestrator.MaxConcurrent,
		PerEngineTimeout: c.Orchestrator.PerEngineTimeout,
		GlobalDeadline:   c.Orchestrator.GlobalDeadline,
		CacheTTL:         ttl,
		PriorityEngines:  append([]string(nil), c.Orchestrator.PriorityEngines...),
		Scoring: search.ScoringOptions{
			PremiumDomains:   append([]string(nil), c.Scoring.PremiumDomains...),
			ChineseThreshold: c.Scoring.ChineseThreshold,
			PremiumBoost:     c.Scoring.PremiumBoost,
			ChineseBoost:     c.Scoring.ChineseBoost,
			PreferChinese:    c.Scoring.PreferChinese,
			Weights:          c.Scoring.Weights,
		},
		QualityThreshold:     c.Orchestrator.QualityThreshold,
		FilterBelowThreshold: c.Orchestrator.FilterBelowThreshold,
	}
}

// Print 打印配置信息
func (c *Config) Print(logger *logrus.Logger) {
	if c.Profile != "" {
		logger.Infof("🎛️ Profile: %s", c.Profile)
	}
	logger.Infof("🔍 Enabled search engines: %s", strings.Join(c.Engines.Enabled, ", "))
	logger.Infof("🔍 Priority engines: %s", strings.Join(c.Orchestrator.PriorityEngines, ", "))
	logger.Infof("⏱️ Per-engine timeout %s, global deadline %s, max concurrent %d",
		c.Orchestrator.PerEngineTimeout, c.Orchestrator.GlobalDeadline, c.Orchestrator.MaxConcurrent)
	logger.Infof("🈶 Chinese threshold %.2f, premium domains: %s", c.Scoring.ChineseThreshold, strings.Join(c.Scoring.PremiumDomains, ", "))
	logger.Infof("💾 Cache backend: %s (ttl %s)", c.Cache.Backend, c.Cache.TTL)
	if c.Proxy.Enabled {
		logger.Infof("🌐 Using proxy: %s", c.Proxy.URL)
	} else {
		logger.Infof("🌐 No proxy configured")
	}
	if c.Server.CORS.Enabled {
		logger.Infof("🔒 CORS enabled with origin: %s", c.Server.CORS.Origin)
	} else {
		logger.Infof("🔒 CORS disabled")
	}
	logger.Infof("🔧 MCP Server: %s v%s", c.MCP.ServerName, c.MCP.ServerVersion)
	logger.Infof("🖥️ Server will listen on %s:%d", c.Server.Host, c.Server.Port)
}

// ProxyURL 启用代理时返回代理地址，否则为空
func (c *Config) ProxyURL() string {
	if !c.Proxy.Enabled {
		return ""
	}
	return c.Proxy.URL
}

// Addr 监听地址
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func isValidEngine(engine string) bool {
	return contains(ValidEngines, engine)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
