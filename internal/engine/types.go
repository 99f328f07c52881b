package engine

import (
	"context"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// 引擎名称
const (
	NameBing          = "bing"
	NameBaidu         = "baidu"
	NameSogou         = "sogou"
	NameDuckDuckGo    = "duckduckgo"
	NameBrowserGoogle = "browser_google"
	NameBrowserBing   = "browser_bing"
	NameBrowserBaidu  = "browser_baidu"
	NameZhihu         = "zhihu"
	NameDouban        = "douban"
	NameZhidao        = "baidu_zhidao"
)

// 摘要最大长度（字符）
const maxSnippetRunes = 500

// Options HTTP 引擎的通用配置
type Options struct {
	Client *HTTPClient
	// BaseURL 覆盖引擎默认地址，测试时指向 httptest
	BaseURL string
	// MobileBaseURL 百度移动端地址
	MobileBaseURL string
	MaxPages      int
	PageDelay     time.Duration
	Logger        *logrus.Logger
}

func (o Options) withDefaults(baseURL string, maxPages int, pageDelay time.Duration) Options {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.MaxPages <= 0 {
		o.MaxPages = maxPages
	}
	if o.PageDelay < 0 {
		o.PageDelay = 0
	} else if o.PageDelay == 0 {
		o.PageDelay = pageDelay
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	if o.Client == nil {
		o.Client = NewHTTPClient(ClientOptions{}, o.Logger)
	}
	return o
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// pageFetcher 抓取第 page 页（从 0 开始）
type pageFetcher func(ctx context.Context, page int) ([]search.RawResult, error)

// collectPages 逐页抓取，直到凑够 limit、页数用尽、某页为空或出错。
// 出错时如果已经拿到部分结果就返回这些结果。
func collectPages(ctx context.Context, logger *logrus.Logger, engine string, limit, maxPages int, delay time.Duration, fetch pageFetcher) ([]search.RawResult, error) {
	var all []search.RawResult
	for page := 0; page < maxPages && len(all) < limit; page++ {
		if page > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return truncate(all, limit), nil
			case <-time.After(delay):
			}
		}

		results, err := fetch(ctx, page)
		if err != nil {
			if len(all) > 0 {
				logger.Warnf("⚠️ %s: error on page %d, returning %d results collected so far: %v", engine, page, len(all), err)
				break
			}
			return nil, err
		}
		if len(results) == 0 {
			logger.Debugf("%s: no more results at page %d", engine, page)
			break
		}
		all = append(all, results...)
	}
	return truncate(all, limit), nil
}

func truncate(results []search.RawResult, limit int) []search.RawResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

// cleanText 合并空白并去掉残留的 em 标签
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "<em>", "")
	s = strings.ReplaceAll(s, "</em>", "")
	return strings.Join(strings.Fields(s), " ")
}

// clipSnippet 限制摘要长度
func clipSnippet(s string) string {
	s = cleanText(s)
	if utf8.RuneCountInString(s) <= maxSnippetRunes {
		return s
	}
	return string([]rune(s)[:maxSnippetRunes]) + "..."
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
