package search

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.com/Path/", "example.com/Path"},
		{"http://example.com/Path", "example.com/Path"},
		{"https://example.com:443/a", "example.com/a"},
		{"http://example.com:8080/a", "example.com:8080/a"},
		{"https://example.com/a#section", "example.com/a"},
		{"https://example.com/a?utm_source=x&id=2&gclid=abc", "example.com/a?id=2"},
		{"https://example.com/a?b=2&a=1", "example.com/a?a=1&b=2"},
		{"example.com/a/", "example.com/a"},
		{"//example.com/a", "example.com/a"},
		{"https://example.com/p?a=%zz&b=1", "example.com/p?a=%zz&b=1"},
		{"https://example.com/p?b=1&utm_source=x&a=%zz", "example.com/p?a=%zz&b=1"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}

func TestNormalizeURL_BadEscapeKeepsParams(t *testing.T) {
	assert.NotEqual(t, NormalizeURL("https://example.com/p?b=1"), NormalizeURL("https://example.com/p?a=%zz&b=1"))
	assert.NotEqual(t, NormalizeURL("https://example.com/p?id=%zz1"), NormalizeURL("https://example.com/p?id=%zz2"))
}

func TestMerge_PriorityOrderWins(t *testing.T) {
	outcomes := []EngineOutcome{
		{Engine: "duckduckgo", Results: []RawResult{
			{Title: "ddg", URL: "https://example.com/a/?ref=ddg"},
			{Title: "only ddg", URL: "https://ddg.example/x"},
		}},
		{Engine: "bing", Results: []RawResult{
			{Title: "bing", URL: "http://example.com/a"},
		}},
	}

	merged := Merge(outcomes, []string{"bing", "duckduckgo"})
	require.Len(t, merged, 2)
	assert.Equal(t, "bing", merged[0].Title)
	assert.Equal(t, "bing", merged[0].Engine)
	assert.Equal(t, "only ddg", merged[1].Title)
	assert.Equal(t, "duckduckgo", merged[1].Engine)
}

func TestMerge_UnlistedEnginesKeepAdapterOrder(t *testing.T) {
	outcomes := []EngineOutcome{
		{Engine: "x", Results: []RawResult{{Title: "x", URL: "https://same.com"}}},
		{Engine: "y", Results: []RawResult{{Title: "y", URL: "https://same.com/"}}},
		{Engine: "bing", Results: []RawResult{{Title: "bing", URL: "https://other.com"}}},
	}
	merged := Merge(outcomes, []string{"bing"})
	require.Len(t, merged, 2)
	assert.Equal(t, "bing", merged[0].Title)
	assert.Equal(t, "x", merged[1].Title)
}

func TestMerge_SkipsFailedAndEmptyURLs(t *testing.T) {
	outcomes := []EngineOutcome{
		{Engine: "bing", Err: errors.New("down"), Results: []RawResult{{URL: "https://a.com"}}},
		{Engine: "baidu", Results: []RawResult{{Title: "no url"}, {Title: "ok", URL: "https://b.com"}}},
	}
	merged := Merge(outcomes, nil)
	require.Len(t, merged, 1)
	assert.Equal(t, "ok", merged[0].Title)
}
