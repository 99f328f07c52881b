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

// ErrCaptcha 引擎返回了验证码页面
var ErrCaptcha = errors.New("captcha required")

// 百度广告和推广关键词
var baiduAdKeywords = []string{"广告", "推广", "想在此推广"}

// BaiduEngine 百度搜索引擎实现
type BaiduEngine struct {
	client    *HTTPClient
	baseURL   string
	mobileURL string
	maxPages  int
	delay     time.Duration
	logger    *logrus.Logger
}

// NewBaiduEngine 创建百度搜索引擎实例
func NewBaiduEngine(opts Options) *BaiduEngine {
	opts = opts.withDefaults("https://www.baidu.com", 5, 500*time.Millisecond)
	mobile := opts.MobileBaseURL
	if mobile == "" {
		mobile = "https://m.baidu.com"
	}
	return &BaiduEngine{
		client:    opts.Client,
		baseURL:   opts.BaseURL,
		mobileURL: strings.TrimRight(mobile, "/"),
		maxPages:  opts.MaxPages,
		delay:     opts.PageDelay,
		logger:    opts.Logger,
	}
}

// Name 返回引擎名称
func (e *BaiduEngine) Name() string {
	return NameBaidu
}

// Search 执行百度搜索
func (e *BaiduEngine) Search(ctx context.Context, query string, limit int) ([]search.RawResult, error) {
	// 首先访问百度主页获取 cookie
	if err := e.warmup(ctx); err != nil {
		e.logger.Warnf("⚠️ Baidu warmup failed: %v", err)
	}

	results, err := collectPages(ctx, e.logger, e.Name(), limit, e.maxPages, e.delay, func(ctx context.Context, page int) ([]search.RawResult, error) {
		return e.searchPage(ctx, query, page*10)
	})
	if errors.Is(err, ErrCaptcha) {
		return nil, fmt.Errorf("baidu rate limited: %w", err)
	}
	return results, err
}

// warmup 访问百度主页获取初始 cookie
func (e *BaiduEngine) warmup(ctx context.Context) error {
	if _, err := e.client.Get(ctx, e.baseURL+"/", browserHeaders(desktopUA, "zh-CN,zh;q=0.9,en;q=0.8")); err != nil {
		return err
	}
	e.logger.Debugf("🔍 Baidu warmup completed, cookies established")
	return nil
}

// searchPage 搜索单页结果，遇到验证码时改用移动端页面
func (e *BaiduEngine) searchPage(ctx context.Context, query string, pn int) ([]search.RawResult, error) {
	params := url.Values{}
	params.Set("wd", query)
	params.Set("pn", strconv.Itoa(pn))
	params.Set("ie", "utf-8")
	params.Set("oq", query)
	params.Set("rsv_idx", "1")

	header := browserHeaders(desktopUA, "zh-CN,zh;q=0.9,en;q=0.8")
	header.Set("Sec-Fetch-Dest", "document")
	header.Set("Sec-Fetch-Mode", "navigate")
	header.Set("Upgrade-Insecure-Requests", "1")

	body, err := e.client.Get(ctx, e.baseURL+"/s?"+params.Encode(), header)
	if err != nil {
		return nil, err
	}
	e.logger.Debugf("🔍 Baidu response size: %d bytes", len(body))

	if isBaiduCaptcha(body) {
		e.logger.Warnf("⚠️ Baidu: Detected captcha/verification page, trying mobile approach")
		mobileResults, err := e.searchPageMobile(ctx, query, pn)
		if err != nil {
			return nil, err
		}
		if len(mobileResults) == 0 {
			return nil, ErrCaptcha
		}
		return mobileResults, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}

	results := parseBaiduDocument(doc)
	e.logger.Debugf("🔍 Baidu page %d: found %d results", pn/10, len(results))
	return results, nil
}

// searchPageMobile 使用移动端页面搜索（备选方案）
func (e *BaiduEngine) searchPageMobile(ctx context.Context, query string, pn int) ([]search.RawResult, error) {
	params := url.Values{}
	params.Set("word", query)
	params.Set("pn", strconv.Itoa(pn))

	header := http.Header{}
	header.Set("User-Agent", mobileUA)
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	header.Set("Accept-Language", "zh-CN,zh;q=0.9")

	body, err := e.client.Get(ctx, e.mobileURL+"/s?"+params.Encode(), header)
	if err != nil {
		return nil, fmt.Errorf("mobile request: %w", err)
	}
	if isBaiduCaptcha(body) {
		return nil, ErrCaptcha
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse mobile HTML failed: %w", err)
	}
	return parseBaiduMobileDocument(doc, e.mobileURL), nil
}

func isBaiduCaptcha(body []byte) bool {
	return bytes.Contains(body, []byte("wappass.baidu.com")) ||
		bytes.Contains(body, []byte("captcha")) ||
		bytes.Contains(body, []byte("安全验证"))
}

// parseBaiduDocument 解析 #content_left 下的结果
func parseBaiduDocument(doc *goquery.Document) []search.RawResult {
	var results []search.RawResult
	doc.Find("#content_left").Children().Each(func(i int, s *goquery.Selection) {
		if r, ok := parseBaiduItem(s); ok {
			results = append(results, r)
		}
	})
	return results
}

func parseBaiduItem(s *goquery.Selection) (search.RawResult, bool) {
	titleEl := s.Find("h3")
	if titleEl.Length() == 0 {
		return search.RawResult{}, false
	}
	title := cleanText(titleEl.Text())
	if title == "" {
		return search.RawResult{}, false
	}

	linkEl := titleEl.Find("a").First()
	if linkEl.Length() == 0 {
		linkEl = s.Find("a").First()
	}
	href, _ := linkEl.Attr("href")
	if !isHTTPURL(href) || isBaiduInternal(href, title) {
		return search.RawResult{}, false
	}

	// 摘要：优先 aria-label，其次 .cos-row、.c-abstract
	snippet := ""
	if label, ok := s.Find(".c-font-normal.c-color-text").First().Attr("aria-label"); ok {
		snippet = label
	}
	for _, sel := range []string{".cos-row", ".c-abstract"} {
		if strings.TrimSpace(snippet) != "" {
			break
		}
		snippet = s.Find(sel).First().Text()
	}

	return search.RawResult{Title: title, URL: href, Snippet: clipSnippet(snippet)}, true
}

// parseBaiduMobileDocument 解析移动端结果，相对链接补全为 base 下的绝对地址
func parseBaiduMobileDocument(doc *goquery.Document, base string) []search.RawResult {
	var results []search.RawResult

	doc.Find(".c-result, .result").Each(func(i int, s *goquery.Selection) {
		title := cleanText(s.Find(".c-title, .c-title-text, h3").First().Text())
		if title == "" {
			return
		}

		href, _ := s.Find("a").First().Attr("href")
		if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
			href = base + href
		}
		if !isHTTPURL(href) || isBaiduInternal(href, title) {
			return
		}

		results = append(results, search.RawResult{
			Title:   title,
			URL:     href,
			Snippet: clipSnippet(s.Find(".c-abstract, .c-span-last, .c-line-clamp2").First().Text()),
		})
	})
	return results
}

// isBaiduInternal 过滤相关搜索、广告链接和推广标题
func isBaiduInternal(href, title string) bool {
	if strings.Contains(href, "baidu.com/s?") || strings.Contains(href, "baidu.com/baidu.php") {
		return true
	}
	for _, keyword := range baiduAdKeywords {
		if strings.Contains(title, keyword) {
			return true
		}
	}
	return false
}
