package search

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Query 不可变的查询值
type Query struct {
	Raw        string
	Normalized string
	MaxResults int
}

// NewQuery 校验并规范化查询
func NewQuery(raw string, maxResults int) (Query, error) {
	text := collapseSpaces(raw)
	if text == "" {
		return Query{}, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	if maxResults < 1 {
		return Query{}, fmt.Errorf("%w: max_results must be >= 1, got %d", ErrInvalidInput, maxResults)
	}
	return Query{
		Raw:        raw,
		Normalized: NormalizeQuery(raw),
		MaxResults: maxResults,
	}, nil
}

// Text 发给引擎的文本：去掉首尾空白并合并空白，保留大小写
func (q Query) Text() string {
	return collapseSpaces(q.Raw)
}

// NormalizeQuery 去首尾空白、合并空白并做大小写折叠。
// Caser 有状态，每次调用单独创建
func NormalizeQuery(raw string) string {
	return cases.Fold().String(collapseSpaces(raw))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
