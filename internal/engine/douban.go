package engine

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/search"
)

var doubanSelectors = siteSelectors{
	containers: []string{".result-list .result", ".search-result .result"},
	title:      []string{".title a", "h3 a", ".title"},
	link:       []string{".title a", "h3 a"},
	desc:       []string{".abstract", ".desc", "p"},
}

// DoubanEngine 豆瓣站内搜索，只取第一页
type DoubanEngine struct {
	client  *HTTPClient
	baseURL string
	logger  *logrus.Logger
}

// NewDoubanEngine 创建豆瓣引擎实例
func NewDoubanEngine(opts Options) *DoubanEngine {
	opts = opts.withDefaults("https://www.douban.com", 1, 0)
	return &DoubanEngine{
		client:  opts.Client,
		baseURL: opts.BaseURL,
		logger:  opts.Logger,
	}
}

// Name 返回引擎名称
func (e *DoubanEngine) Name() string {
	return NameDouban
}

// Search 执行豆瓣搜索
func (e *DoubanEngine) Search(ctx context.Context, query string, limit int) ([]search.RawResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("cat", "1002")

	header := http.Header{}
	header.Set("User-Agent", desktopUA)
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

	body, err := e.client.Get(ctx, e.baseURL+"/search?"+params.Encode(), header)
	if err != nil {
		return nil, err
	}
	doc, err := decodeDocument(body)
	if err != nil {
		return nil, err
	}

	results := parseSiteDocument(doc, doubanSelectors, e.baseURL)
	e.logger.Debugf("🔍 Douban: found %d results", len(results))
	return truncate(results, limit), nil
}
