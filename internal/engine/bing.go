package engine

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// 正则兜底时匹配的链接
var bingLinkRe = regexp.MustCompile(`<a[^>]*href="(https?://[^"]+)"[^>]*>([^<]+)</a>`)

// BingEngine Bing 搜索引擎实现
type BingEngine struct {
	client   *HTTPClient
	baseURL  string
	maxPages int
	delay    time.Duration
	logger   *logrus.Logger
}

// NewBingEngine 创建 Bing 搜索引擎实例
func NewBingEngine(opts Options) *BingEngine {
	opts = opts.withDefaults("https://www.bing.com", 5, 0)
	return &BingEngine{
		client:   opts.Client,
		baseURL:  opts.BaseURL,
		maxPages: opts.MaxPages,
		delay:    opts.PageDelay,
		logger:   opts.Logger,
	}
}

// Name 返回引擎名称
func (e *BingEngine) Name() string {
	return NameBing
}

// Search 执行 Bing 搜索
func (e *BingEngine) Search(ctx context.Context, query string, limit int) ([]search.RawResult, error) {
	return collectPages(ctx, e.logger, e.Name(), limit, e.maxPages, e.delay, func(ctx context.Context, page int) ([]search.RawResult, error) {
		return e.searchPage(ctx, query, page)
	})
}

// searchPage 搜索单页结果
func (e *BingEngine) searchPage(ctx context.Context, query string, page int) ([]search.RawResult, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s&first=%d&setlang=en", e.baseURL, url.QueryEscape(query), 1+page*10)

	body, err := e.client.Get(ctx, searchURL, browserHeaders(desktopUA, "en-US,en;q=0.9"))
	if err != nil {
		return nil, err
	}
	e.logger.Debugf("🔍 Bing response size: %d bytes", len(body))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}

	results := parseBingDocument(doc)
	if len(results) == 0 {
		e.logger.Debugf("⚠️ Bing standard parsing found no results, trying regex extraction")
		results = extractBingLinks(string(body))
	}

	e.logger.Debugf("🔍 Bing page %d: found %d results", page, len(results))
	return results, nil
}

// parseBingDocument 解析 Bing 结果页，浏览器版 Bing 也用它
func parseBingDocument(doc *goquery.Document) []search.RawResult {
	var results []search.RawResult

	for _, selector := range []string{"li.b_algo", "#b_results > li.b_algo", ".b_algo"} {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			titleEl := s.Find("h2")
			linkEl := s.Find("h2 a")
			if titleEl.Length() == 0 || linkEl.Length() == 0 {
				return
			}

			href, exists := linkEl.Attr("href")
			if !exists || !isHTTPURL(href) {
				return
			}

			snippet := ""
			for _, descSel := range []string{".b_caption p", "p", ".b_algoSlug"} {
				if descEl := s.Find(descSel); descEl.Length() > 0 {
					snippet = strings.TrimSpace(descEl.First().Text())
					if snippet != "" {
						break
					}
				}
			}

			results = append(results, search.RawResult{
				Title:   cleanText(titleEl.Text()),
				URL:     href,
				Snippet: clipSnippet(snippet),
			})
		})

		if len(results) > 0 {
			break
		}
	}
	return results
}

// extractBingLinks 使用正则提取结果（备用方案）
func extractBingLinks(html string) []search.RawResult {
	var results []search.RawResult
	seen := make(map[string]bool)

	for _, match := range bingLinkRe.FindAllStringSubmatch(html, -1) {
		href := match[1]
		title := strings.TrimSpace(match[2])

		// 过滤 Bing 自身的链接和空标题
		if strings.Contains(href, "bing.com") ||
			strings.Contains(href, "microsoft.com") ||
			title == "" ||
			seen[href] {
			continue
		}

		seen[href] = true
		results = append(results, search.RawResult{Title: title, URL: href})
		if len(results) >= 10 {
			break
		}
	}
	return results
}
