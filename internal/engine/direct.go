package engine

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/cliffyan/go-biz-search/internal/search"
)

// 单页最多取的结果块
const maxDirectItems = 10

// siteSelectors 站内搜索页的选择器，每组按顺序回退
type siteSelectors struct {
	containers []string
	title      []string
	link       []string
	desc       []string
}

// decodeDocument 按页面声明的编码转成 UTF-8 再解析
func decodeDocument(body []byte) (*goquery.Document, error) {
	r, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return nil, fmt.Errorf("detect charset failed: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}
	return doc, nil
}

// parseSiteDocument 用第一组能命中的容器选择器取结果
func parseSiteDocument(doc *goquery.Document, sel siteSelectors, base string) []search.RawResult {
	var items *goquery.Selection
	for _, selector := range sel.containers {
		if items = doc.Find(selector); items.Length() > 0 {
			break
		}
	}
	if items == nil || items.Length() == 0 {
		return nil
	}

	var results []search.RawResult
	items.Slice(0, min(items.Length(), maxDirectItems)).Each(func(i int, s *goquery.Selection) {
		title := firstText(s, sel.title, 3)
		if utf8.RuneCountInString(title) <= minDirectTitleRunes {
			return
		}
		href := ""
		for _, selector := range sel.link {
			if v, ok := s.Find(selector).First().Attr("href"); ok && v != "" {
				href = v
				break
			}
		}
		href = resolveSiteURL(href, base)
		if !isHTTPURL(href) {
			return
		}
		results = append(results, search.RawResult{
			Title:   title,
			URL:     href,
			Snippet: clipSnippet(firstText(s, sel.desc, 3)),
		})
	})
	return results
}

// firstText 返回第一个长度超过 minRunes 的文本
func firstText(s *goquery.Selection, selectors []string, minRunes int) string {
	for _, selector := range selectors {
		el := s.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		if text := cleanText(el.Text()); utf8.RuneCountInString(text) > minRunes {
			return text
		}
	}
	return ""
}

// resolveSiteURL 补全站内相对链接，跳转链接取 url= 参数
func resolveSiteURL(href, base string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "//"):
		href = "https:" + href
	case strings.HasPrefix(href, "/"):
		href = base + href
	}
	if u, err := url.Parse(href); err == nil {
		if target := u.Query().Get("url"); isHTTPURL(target) {
			return target
		}
	}
	return href
}
