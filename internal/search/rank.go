package search

import "sort"

// Rank 按商业价值分降序排序（同分看内容质量分，再看合并顺序），并截断到 limit
func Rank(results []ScoredResult, limit int) []ScoredResult {
	ranked := append([]ScoredResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].BusinessValue != ranked[j].BusinessValue {
			return ranked[i].BusinessValue > ranked[j].BusinessValue
		}
		return ranked[i].ContentQuality > ranked[j].ContentQuality
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// FilterBelow 丢弃商业价值分低于阈值的结果
func FilterBelow(results []ScoredResult, threshold float64) []ScoredResult {
	out := results[:0:0]
	for _, r := range results {
		if r.BusinessValue >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// Assemble 组装结果集，统计值只覆盖截断后的结果
func Assemble(query string, ranked []ScoredResult) *ResultSet {
	rs := &ResultSet{
		Query:        query,
		Success:      true,
		Results:      ranked,
		TotalResults: len(ranked),
	}
	if rs.Results == nil {
		rs.Results = []ScoredResult{}
	}
	for _, r := range ranked {
		if r.IsChinese {
			rs.ChineseResults++
		}
		if r.IsPremium {
			rs.PremiumResults++
		}
	}
	return rs
}

// Summary 结果集的汇总统计
type Summary struct {
	TotalResults      int     `json:"total_results"`
	ChineseResults    int     `json:"chinese_results"`
	PremiumResults    int     `json:"premium_results"`
	AvgQuality        float64 `json:"avg_quality"`
	AvgBusinessValue  float64 `json:"avg_business_value"`
	ChinesePercentage float64 `json:"chinese_percentage"`
	PremiumPercentage float64 `json:"premium_percentage"`
}

// Summarize 计算结果集的平均分和占比
func Summarize(rs *ResultSet) Summary {
	if rs == nil || len(rs.Results) == 0 {
		return Summary{}
	}
	s := Summary{
		TotalResults:   len(rs.Results),
		ChineseResults: rs.ChineseResults,
		PremiumResults: rs.PremiumResults,
	}
	var quality, value float64
	for _, r := range rs.Results {
		quality += r.ContentQuality
		value += r.BusinessValue
	}
	n := float64(len(rs.Results))
	s.AvgQuality = round2(quality / n)
	s.AvgBusinessValue = round2(value / n)
	s.ChinesePercentage = round2(float64(rs.ChineseResults) / n * 100)
	s.PremiumPercentage = round2(float64(rs.PremiumResults) / n * 100)
	return s
}
