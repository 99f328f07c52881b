package config

import (
	"fmt"
	"time"
)

// profile 预设只覆盖这些字段，其他保持默认值
type profile struct {
	perEngineTimeout   time.Duration
	maxConcurrent      int
	minRequestInterval time.Duration
	cacheTTL           time.Duration
	maxResults         int
	priorityEngines    []string
	qualityThreshold   float64
	chineseThreshold   float64
	premiumBoost       bool
}

var profiles = map[string]profile{
	"development": {
		perEngineTimeout:   10 * time.Second,
		maxConcurrent:      2,
		minRequestInterval: 2 * time.Second,
		cacheTTL:           5 * time.Minute,
		maxResults:         15,
		priorityEngines:    []string{"bing", "baidu"},
		qualityThreshold:   50,
		chineseThreshold:   0.2,
		premiumBoost:       false,
	},
	"production": {
		perEngineTimeout:   12 * time.Second,
		maxConcurrent:      6,
		minRequestInterval: time.Second,
		cacheTTL:           time.Hour,
		maxResults:         25,
		priorityEngines:    []string{"bing", "baidu", "sogou", "duckduckgo"},
		qualityThreshold:   70,
		chineseThreshold:   0.3,
		premiumBoost:       true,
	},
	"high_performance": {
		perEngineTimeout:   15 * time.Second,
		maxConcurrent:      10,
		minRequestInterval: 500 * time.Millisecond,
		cacheTTL:           2 * time.Hour,
		maxResults:         50,
		priorityEngines:    []string{"bing", "baidu", "sogou", "duckduckgo"},
		qualityThreshold:   60,
		chineseThreshold:   0.3,
		premiumBoost:       true,
	},
}

// ApplyProfile 套用预设。全局截止时间比单引擎超时多 3 秒
func (c *Config) ApplyProfile(name string) error {
	p, ok := profiles[name]
	if !ok {
		return fmt.Errorf("unknown profile %q (valid: %v)", name, ValidProfiles)
	}

	c.Profile = name
	c.Orchestrator.PerEngineTimeout = p.perEngineTimeout
	c.Orchestrator.GlobalDeadline = p.perEngineTimeout + 3*time.Second
	c.Orchestrator.MaxConcurrent = p.maxConcurrent
	c.Orchestrator.DefaultMaxResults = p.maxResults
	c.Orchestrator.PriorityEngines = append([]string(nil), p.priorityEngines...)
	c.Orchestrator.QualityThreshold = p.qualityThreshold
	c.Engines.MinRequestInterval = p.minRequestInterval
	c.Cache.TTL = p.cacheTTL
	c.Scoring.ChineseThreshold = p.chineseThreshold
	if !p.premiumBoost {
		c.Scoring.PremiumBoost = 0
	}
	return nil
}
