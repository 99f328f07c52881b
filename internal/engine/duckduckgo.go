package engine

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// DuckDuckGoEngine DuckDuckGo 搜索引擎实现（HTML 版，只有一页）
type DuckDuckGoEngine struct {
	client  *HTTPClient
	baseURL string
	logger  *logrus.Logger
}

// NewDuckDuckGoEngine 创建 DuckDuckGo 搜索引擎实例
func NewDuckDuckGoEngine(opts Options) *DuckDuckGoEngine {
	opts = opts.withDefaults("https://html.duckduckgo.com", 1, 0)
	return &DuckDuckGoEngine{
		client:  opts.Client,
		baseURL: opts.BaseURL,
		logger:  opts.Logger,
	}
}

// Name 返回引擎名称
func (e *DuckDuckGoEngine) Name() string {
	return NameDuckDuckGo
}

// Search 执行 DuckDuckGo 搜索
func (e *DuckDuckGoEngine) Search(ctx context.Context, query string, limit int) ([]search.RawResult, error) {
	searchURL := fmt.Sprintf("%s/html/?q=%s", e.baseURL, url.QueryEscape(query))

	body, err := e.client.Get(ctx, searchURL, browserHeaders(desktopUA, "en-US,en;q=0.9"))
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}

	results := parseDuckDuckGoDocument(doc, limit)
	e.logger.Debugf("🔍 DuckDuckGo: found %d results for query '%s'", len(results), query)
	return results, nil
}

func parseDuckDuckGoDocument(doc *goquery.Document, limit int) []search.RawResult {
	var results []search.RawResult

	doc.Find(".result").Each(func(i int, s *goquery.Selection) {
		if len(results) >= limit {
			return
		}

		titleEl := s.Find(".result__title")
		linkEl := s.Find(".result__a")
		if titleEl.Length() == 0 || linkEl.Length() == 0 {
			return
		}

		href, exists := linkEl.Attr("href")
		if !exists {
			return
		}
		href = unwrapDuckDuckGoURL(href)
		if !isHTTPURL(href) {
			return
		}

		results = append(results, search.RawResult{
			Title:   cleanText(titleEl.Text()),
			URL:     href,
			Snippet: clipSnippet(s.Find(".result__snippet").Text()),
		})
	})
	return results
}

// unwrapDuckDuckGoURL 解析 //duckduckgo.com/l/?uddg=... 跳转链接
func unwrapDuckDuckGoURL(href string) string {
	if !strings.HasPrefix(href, "//duckduckgo.com/l/") && !strings.HasPrefix(href, "https://duckduckgo.com/l/") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("uddg")
}
