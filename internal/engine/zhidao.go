package engine

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cliffyan/go-biz-search/internal/search"
)

var zhidaoSelectors = siteSelectors{
	containers: []string{".list-inner .dl", ".result-list .result-item"},
	title:      []string{".dt a", ".title a"},
	link:       []string{".dt a", ".title a"},
	desc:       []string{".dd", ".summary"},
}

// ZhidaoEngine 百度知道站内搜索，页面可能是 GBK 编码
type ZhidaoEngine struct {
	client   *HTTPClient
	baseURL  string
	maxPages int
	delay    time.Duration
	logger   *logrus.Logger
}

// NewZhidaoEngine 创建百度知道引擎实例
func NewZhidaoEngine(opts Options) *ZhidaoEngine {
	opts = opts.withDefaults("https://zhidao.baidu.com", 2, 500*time.Millisecond)
	return &ZhidaoEngine{
		client:   opts.Client,
		baseURL:  opts.BaseURL,
		maxPages: opts.MaxPages,
		delay:    opts.PageDelay,
		logger:   opts.Logger,
	}
}

// Name 返回引擎名称
func (e *ZhidaoEngine) Name() string {
	return NameZhidao
}

// Search 执行百度知道搜索，pn 每页 10 条
func (e *ZhidaoEngine) Search(ctx context.Context, query string, limit int) ([]search.RawResult, error) {
	return collectPages(ctx, e.logger, e.Name(), limit, e.maxPages, e.delay, func(ctx context.Context, page int) ([]search.RawResult, error) {
		return e.searchPage(ctx, query, page)
	})
}

func (e *ZhidaoEngine) searchPage(ctx context.Context, query string, page int) ([]search.RawResult, error) {
	params := url.Values{}
	params.Set("word", query)
	params.Set("ie", "utf-8")
	if page > 0 {
		params.Set("pn", strconv.Itoa(page*maxDirectItems))
	}

	header := http.Header{}
	header.Set("User-Agent", desktopUA)
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	header.Set("Accept-Language", "zh-CN,zh;q=0.9")

	body, err := e.client.Get(ctx, e.baseURL+"/search?"+params.Encode(), header)
	if err != nil {
		return nil, err
	}
	doc, err := decodeDocument(body)
	if err != nil {
		return nil, err
	}

	results := parseSiteDocument(doc, zhidaoSelectors, e.baseURL)
	e.logger.Debugf("🔍 Zhidao page %d: found %d results", page+1, len(results))
	return results, nil
}
