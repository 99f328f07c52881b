package search

import (
	"fmt"
	"time"
)

// Weights 内容质量分的各项权重
type Weights struct {
	Base             float64 `yaml:"base" json:"base"`
	SnippetMax       float64 `yaml:"snippet_max" json:"snippet_max"`
	SnippetCapRunes  int     `yaml:"snippet_cap_runes" json:"snippet_cap_runes"`
	TruncatedPenalty float64 `yaml:"truncated_penalty" json:"truncated_penalty"`
	TitleMax         float64 `yaml:"title_max" json:"title_max"`
	TitleCapRunes    int     `yaml:"title_cap_runes" json:"title_cap_runes"`
	Date             float64 `yaml:"date" json:"date"`
	Numeric          float64 `yaml:"numeric" json:"numeric"`
	QuestionAnswer   float64 `yaml:"question_answer" json:"question_answer"`
	PunctuationSpam  float64 `yaml:"punctuation_spam" json:"punctuation_spam"`
	CapsSpam         float64 `yaml:"caps_spam" json:"caps_spam"`
}

// DefaultWeights 所有正向信号都命中时合计 100
var DefaultWeights = Weights{
	Base:             25,
	SnippetMax:       35,
	SnippetCapRunes:  160,
	TruncatedPenalty: 5,
	TitleMax:         15,
	TitleCapRunes:    30,
	Date:             10,
	Numeric:          8,
	QuestionAnswer:   7,
	PunctuationSpam:  15,
	CapsSpam:         15,
}

// ScoringOptions 打分配置
type ScoringOptions struct {
	PremiumDomains   []string
	ChineseThreshold float64
	PremiumBoost     float64
	ChineseBoost     float64
	PreferChinese    bool
	Weights          Weights
}

// Options 编排器配置，构造时传入，运行期不再读取
type Options struct {
	MaxConcurrent        int
	PerEngineTimeout     time.Duration
	GlobalDeadline       time.Duration
	CacheTTL             time.Duration
	PriorityEngines      []string
	Scoring              ScoringOptions
	QualityThreshold     float64
	FilterBelowThreshold bool
}

// DefaultOptions 默认配置
func DefaultOptions() Options {
	return Options{
		MaxConcurrent:    6,
		PerEngineTimeout: 12 * time.Second,
		GlobalDeadline:   15 * time.Second,
		CacheTTL:         time.Hour,
		PriorityEngines:  []string{"bing", "baidu", "sogou", "duckduckgo"},
		Scoring: ScoringOptions{
			PremiumDomains:   []string{"zhihu.com"},
			ChineseThreshold: 0.15,
			PremiumBoost:     15,
			ChineseBoost:     10,
			PreferChinese:    true,
			Weights:          DefaultWeights,
		},
		QualityThreshold: 50,
	}
}

// Validate 校验配置
func (o Options) Validate() error {
	if o.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be >= 1, got %d", o.MaxConcurrent)
	}
	if o.PerEngineTimeout <= 0 {
		return fmt.Errorf("per_engine_timeout must be positive, got %s", o.PerEngineTimeout)
	}
	if o.GlobalDeadline <= 0 {
		return fmt.Errorf("global_deadline must be positive, got %s", o.GlobalDeadline)
	}
	if o.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative, got %s", o.CacheTTL)
	}
	if o.Scoring.ChineseThreshold < 0 || o.Scoring.ChineseThreshold > 1 {
		return fmt.Errorf("chinese_detection_threshold must be within [0,1], got %v", o.Scoring.ChineseThreshold)
	}
	if o.QualityThreshold < 0 || o.QualityThreshold > 100 {
		return fmt.Errorf("quality_threshold must be within [0,100], got %v", o.QualityThreshold)
	}
	if o.Scoring.Weights.SnippetCapRunes <= 0 || o.Scoring.Weights.TitleCapRunes <= 0 {
		return fmt.Errorf("scoring weight caps must be positive")
	}
	return nil
}
