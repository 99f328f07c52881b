package engine

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// browserSite 描述一个通过浏览器抓取的搜索站点
type browserSite struct {
	searchURL func(query string, page int) string
	// waitSelector 结果容器，按 ID 等待
	waitSelector string
	parse        func(doc *goquery.Document) []search.RawResult
}

var browserSites = map[string]browserSite{
	NameBrowserGoogle: {
		searchURL: func(q string, page int) string {
			return fmt.Sprintf("https://www.google.com/search?q=%s&start=%d&hl=zh-CN", url.QueryEscape(q), page*10)
		},
		waitSelector: "#search",
		parse:        parseGoogleDocument,
	},
	NameBrowserBing: {
		searchURL: func(q string, page int) string {
			return fmt.Sprintf("https://www.bing.com/search?q=%s&first=%d", url.QueryEscape(q), 1+page*10)
		},
		waitSelector: "#b_results",
		parse:        parseBingDocument,
	},
	NameBrowserBaidu: {
		searchURL: func(q string, page int) string {
			return fmt.Sprintf("https://www.baidu.com/s?wd=%s&pn=%d", url.QueryEscape(q), page*10)
		},
		waitSelector: "#content_left",
		parse:        parseBaiduRenderedDocument,
	},
}

// BrowserEngine 用无头浏览器渲染结果页的搜索引擎
type BrowserEngine struct {
	name     string
	site     browserSite
	browser  *BrowserManager
	maxPages int
	settle   time.Duration
	logger   *logrus.Logger
}

// NewBrowserEngine 创建浏览器引擎，name 为 browser_google、browser_bing 或 browser_baidu
func NewBrowserEngine(name string, browser *BrowserManager, maxPages int, logger *logrus.Logger) (*BrowserEngine, error) {
	site, ok := browserSites[name]
	if !ok {
		return nil, fmt.Errorf("unknown browser engine: %s", name)
	}
	if maxPages <= 0 {
		maxPages = 3
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &BrowserEngine{
		name:     name,
		site:     site,
		browser:  browser,
		maxPages: maxPages,
		settle:   2 * time.Second,
		logger:   logger,
	}, nil
}

// Name 返回引擎名称
func (e *BrowserEngine) Name() string {
	return e.name
}

// Search 使用浏览器执行搜索
func (e *BrowserEngine) Search(ctx context.Context, query string, limit int) ([]search.RawResult, error) {
	return collectPages(ctx, e.logger, e.name, limit, e.maxPages, 0, func(ctx context.Context, page int) ([]search.RawResult, error) {
		return e.searchPage(ctx, query, page)
	})
}

func (e *BrowserEngine) searchPage(ctx context.Context, query string, page int) ([]search.RawResult, error) {
	tabCtx, cancel, err := e.browser.NewTab(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	searchURL := e.site.searchURL(query, page)
	e.logger.Debugf("🌐 [%s] Navigating to: %s", e.name, searchURL)

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(searchURL),
		chromedp.WaitReady(e.site.waitSelector, chromedp.ByID),
		chromedp.Sleep(e.settle),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("browser navigation failed: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}
	results := e.site.parse(doc)
	e.logger.Debugf("✅ [%s] Page %d: found %d results", e.name, page, len(results))
	return results, nil
}

// parseGoogleDocument 解析 Google 结果页
func parseGoogleDocument(doc *goquery.Document) []search.RawResult {
	var results []search.RawResult
	seen := make(map[string]bool)

	for _, selector := range []string{"div.g", "div[data-ved]", "div.Gx5Zad"} {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			// 外层容器包含 div.g 时跳过，避免重复
			if selector != "div.g" && s.Find("div.g").Length() > 0 {
				return
			}

			href, ok := s.Find("a[href]").First().Attr("href")
			if !ok || !isHTTPURL(href) ||
				strings.Contains(href, "google.com") ||
				strings.Contains(href, "webcache.googleusercontent.com") ||
				seen[href] {
				return
			}

			title := cleanText(s.Find("h3").First().Text())
			if title == "" {
				return
			}

			snippet := ""
			for _, descSel := range []string{"div[data-sncf]", "div.VwiC3b", "span.aCOpRe", "div.IsZvec"} {
				if snippet = strings.TrimSpace(s.Find(descSel).First().Text()); snippet != "" {
					break
				}
			}

			seen[href] = true
			results = append(results, search.RawResult{Title: title, URL: href, Snippet: clipSnippet(snippet)})
		})

		if len(results) > 0 {
			break
		}
	}
	return results
}

// parseBaiduRenderedDocument 解析浏览器渲染后的百度结果页
func parseBaiduRenderedDocument(doc *goquery.Document) []search.RawResult {
	var results []search.RawResult

	doc.Find("div.result, div.result-op, div.c-container").Each(func(i int, s *goquery.Selection) {
		titleEl := s.Find("h3 a")
		if titleEl.Length() == 0 {
			titleEl = s.Find("a[href]")
		}
		titleEl = titleEl.First()

		title := cleanText(titleEl.Text())
		href, _ := titleEl.Attr("href")
		if title == "" || !isHTTPURL(href) || isBaiduInternal(href, title) {
			return
		}

		snippet := ""
		for _, descSel := range []string{"div.c-abstract", "span.c-abstract", "div.c-span-last"} {
			if snippet = strings.TrimSpace(s.Find(descSel).First().Text()); snippet != "" {
				break
			}
		}

		results = append(results, search.RawResult{Title: title, URL: href, Snippet: clipSnippet(snippet)})
	})
	return results
}
