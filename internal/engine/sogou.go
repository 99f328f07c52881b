package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// ErrAntiSpider 搜狗触发了反爬
var ErrAntiSpider = errors.New("sogou rate limited: anti-spider triggered")

var (
	sogouTitleSelectors = []string{".vr-tit a", "h3 a", ".major-title a", "a.resultLink"}
	sogouDescSelectors  = []string{".title-summary", ".clamp2", ".result-summary-exp"}
	sogouInternal       = []string{"sogou.com/web/searchList", "sogou.com/tx?", "sogou.com/v?", "antispider"}
)

// SogouEngine 搜狗搜索引擎实现，使用移动端 WAP 页面
type SogouEngine struct {
	client   *HTTPClient
	baseURL  string
	maxPages int
	delay    time.Duration
	logger   *logrus.Logger
}

// NewSogouEngine 创建搜狗搜索引擎实例
func NewSogouEngine(opts Options) *SogouEngine {
	opts = opts.withDefaults("https://wap.sogou.com", 5, 300*time.Millisecond)
	return &SogouEngine{
		client:   opts.Client,
		baseURL:  opts.BaseURL,
		maxPages: opts.MaxPages,
		delay:    opts.PageDelay,
		logger:   opts.Logger,
	}
}

// Name 返回引擎名称
func (e *SogouEngine) Name() string {
	return NameSogou
}

// Search 执行搜狗搜索
func (e *SogouEngine) Search(ctx context.Context, query string, limit int) ([]search.RawResult, error) {
	return collectPages(ctx, e.logger, e.Name(), limit, e.maxPages, e.delay, func(ctx context.Context, page int) ([]search.RawResult, error) {
		return e.searchPage(ctx, query, page+1)
	})
}

func (e *SogouEngine) searchPage(ctx context.Context, query string, page int) ([]search.RawResult, error) {
	params := url.Values{}
	params.Set("keyword", query)
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}

	header := http.Header{}
	header.Set("User-Agent", mobileUA)
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	header.Set("Referer", e.baseURL+"/")

	body, err := e.client.Get(ctx, e.baseURL+"/web/searchList.jsp?"+params.Encode(), header)
	if err != nil {
		return nil, err
	}
	if bytes.Contains(body, []byte("antispider")) || bytes.Contains(body, []byte("验证码")) {
		return nil, ErrAntiSpider
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}

	results := parseSogouDocument(doc, e.baseURL)
	e.logger.Debugf("🔍 Sogou page %d: found %d results", page, len(results))
	return results, nil
}

// parseSogouDocument 解析 .vrResult 结果块
func parseSogouDocument(doc *goquery.Document, base string) []search.RawResult {
	var results []search.RawResult
	doc.Find(".vrResult").Each(func(i int, s *goquery.Selection) {
		if r, ok := parseSogouItem(s, base); ok {
			results = append(results, r)
		}
	})
	return results
}

func parseSogouItem(s *goquery.Selection, base string) (search.RawResult, bool) {
	var title, href string
	for _, selector := range sogouTitleSelectors {
		el := s.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		title = cleanText(el.Text())
		href, _ = el.Attr("href")
		if title != "" && href != "" {
			break
		}
	}
	if title == "" || href == "" {
		return search.RawResult{}, false
	}

	href = resolveSogouURL(href, base)
	if !isHTTPURL(href) || isSogouInternal(href, title) {
		return search.RawResult{}, false
	}

	snippet := ""
	for _, selector := range sogouDescSelectors {
		if snippet = strings.TrimSpace(s.Find(selector).First().Text()); snippet != "" {
			break
		}
	}

	return search.RawResult{Title: title, URL: href, Snippet: clipSnippet(snippet)}, true
}

// resolveSogouURL 补全相对路径，跳转链接带 url= 参数时取真实地址
func resolveSogouURL(href, base string) string {
	switch {
	case strings.HasPrefix(href, "./"):
		href = base + "/web/" + strings.TrimPrefix(href, "./")
	case strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//"):
		href = base + href
	}
	if u, err := url.Parse(href); err == nil {
		if target := u.Query().Get("url"); isHTTPURL(target) {
			return target
		}
	}
	return href
}

func isSogouInternal(href, title string) bool {
	for _, pattern := range sogouInternal {
		if strings.Contains(href, pattern) {
			return true
		}
	}
	return strings.Contains(title, "广告") || strings.Contains(title, "推广")
}
