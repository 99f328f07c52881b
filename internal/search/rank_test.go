package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(url string, value, quality float64, chinese, premium bool) ScoredResult {
	return ScoredResult{
		RawResult:      RawResult{URL: url},
		BusinessValue:  value,
		ContentQuality: quality,
		IsChinese:      chinese,
		IsPremium:      premium,
	}
}

func TestRank_OrderAndStability(t *testing.T) {
	in := []ScoredResult{
		scored("a", 50, 40, false, false),
		scored("b", 80, 60, false, false),
		scored("c", 50, 45, false, false),
		scored("d", 50, 40, false, false),
	}
	ranked := Rank(in, 10)
	urls := make([]string, len(ranked))
	for i, r := range ranked {
		urls[i] = r.URL
	}
	assert.Equal(t, []string{"b", "c", "a", "d"}, urls)
	// 输入不被修改
	assert.Equal(t, "a", in[0].URL)
}

func TestRank_Truncates(t *testing.T) {
	in := []ScoredResult{scored("a", 1, 1, false, false), scored("b", 2, 2, false, false), scored("c", 3, 3, false, false)}
	ranked := Rank(in, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "c", ranked[0].URL)
}

func TestAssemble_CountsOnlyTruncatedSet(t *testing.T) {
	in := []ScoredResult{
		scored("a", 90, 80, true, true),
		scored("b", 70, 60, true, false),
		scored("c", 10, 10, true, true),
	}
	rs := Assemble("q", Rank(in, 2))
	assert.True(t, rs.Success)
	assert.Equal(t, 2, rs.TotalResults)
	assert.Equal(t, 2, rs.ChineseResults)
	assert.Equal(t, 1, rs.PremiumResults)
}

func TestAssemble_EmptyResultsNotNil(t *testing.T) {
	rs := Assemble("q", nil)
	assert.NotNil(t, rs.Results)
	assert.Equal(t, 0, rs.TotalResults)
}

func TestFilterBelow(t *testing.T) {
	in := []ScoredResult{scored("a", 49.99, 0, false, false), scored("b", 50, 0, false, false)}
	out := FilterBelow(in, 50)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].URL)
}

func TestSummarize(t *testing.T) {
	rs := Assemble("q", []ScoredResult{
		scored("a", 80, 60, true, true),
		scored("b", 60, 40, false, false),
	})
	s := Summarize(rs)
	assert.Equal(t, 2, s.TotalResults)
	assert.Equal(t, 50.0, s.AvgQuality)
	assert.Equal(t, 70.0, s.AvgBusinessValue)
	assert.Equal(t, 50.0, s.ChinesePercentage)
	assert.Equal(t, 50.0, s.PremiumPercentage)

	assert.Equal(t, Summary{}, Summarize(nil))
}
