package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/search"
)

const zhihuPageSize = 10

// 标题不超过这个字符数的条目视为噪音
const minDirectTitleRunes = 5

// zhihuResponse search_v3 接口返回的结构，只取用到的字段
type zhihuResponse struct {
	Data []zhihuItem `json:"data"`
}

type zhihuItem struct {
	Type   string      `json:"type"`
	Object zhihuObject `json:"object"`
}

type zhihuObject struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Excerpt  string `json:"excerpt"`
	Content  string `json:"content"`
	Question struct {
		Title string `json:"title"`
	} `json:"question"`
}

// ZhihuEngine 直接调用知乎搜索 API
type ZhihuEngine struct {
	client   *HTTPClient
	baseURL  string
	maxPages int
	delay    time.Duration
	logger   *logrus.Logger
}

// NewZhihuEngine 创建知乎引擎实例
func NewZhihuEngine(opts Options) *ZhihuEngine {
	opts = opts.withDefaults("https://www.zhihu.com", 2, 500*time.Millisecond)
	return &ZhihuEngine{
		client:   opts.Client,
		baseURL:  opts.BaseURL,
		maxPages: opts.MaxPages,
		delay:    opts.PageDelay,
		logger:   opts.Logger,
	}
}

// Name 返回引擎名称
func (e *ZhihuEngine) Name() string {
	return NameZhihu
}

// Search 按 offset 翻页调用 search_v3
func (e *ZhihuEngine) Search(ctx context.Context, query string, limit int) ([]search.RawResult, error) {
	return collectPages(ctx, e.logger, e.Name(), limit, e.maxPages, e.delay, func(ctx context.Context, page int) ([]search.RawResult, error) {
		return e.searchPage(ctx, query, page*zhihuPageSize)
	})
}

func (e *ZhihuEngine) searchPage(ctx context.Context, query string, offset int) ([]search.RawResult, error) {
	params := url.Values{}
	params.Set("t", "general")
	params.Set("q", query)
	params.Set("correction", "1")
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(zhihuPageSize))

	header := http.Header{}
	header.Set("User-Agent", desktopUA)
	header.Set("Accept", "application/json, text/plain, */*")
	header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	header.Set("Referer", e.baseURL+"/")

	body, err := e.client.Get(ctx, e.baseURL+"/api/v4/search_v3?"+params.Encode(), header)
	if err != nil {
		return nil, err
	}

	results, err := parseZhihuResponse(body, e.baseURL)
	if err != nil {
		return nil, err
	}
	e.logger.Debugf("🔍 Zhihu offset %d: found %d results", offset, len(results))
	return results, nil
}

// parseZhihuResponse 只保留问答、文章和通用结果
func parseZhihuResponse(body []byte, base string) ([]search.RawResult, error) {
	var resp zhihuResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode zhihu response: %w", err)
	}

	var results []search.RawResult
	for _, item := range resp.Data {
		switch item.Type {
		case "search_result", "answer", "article":
		default:
			continue
		}
		obj := item.Object

		title := cleanText(obj.Title)
		if title == "" {
			title = cleanText(obj.Question.Title)
		}
		if utf8.RuneCountInString(title) <= minDirectTitleRunes {
			continue
		}

		href := obj.URL
		if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
			href = base + href
		}
		if !isHTTPURL(href) {
			continue
		}

		snippet := obj.Excerpt
		if snippet == "" {
			snippet = obj.Content
		}
		results = append(results, search.RawResult{Title: title, URL: href, Snippet: clipSnippet(snippet)})
	}
	return results, nil
}
