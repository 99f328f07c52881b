package search

import (
	"net"
	"net/url"
	"sort"
	"strings"
)

// 去重时丢弃的跟踪参数
var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"msclkid": true,
	"yclid":   true,
	"spm":     true,
	"ref":     true,
	"ref_src": true,
	"from":    true,
	"_hsenc":  true,
	"_hsmkt":  true,
	"mc_cid":  true,
	"mc_eid":  true,
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	return strings.HasPrefix(key, "utm_") || trackingParams[key]
}

// NormalizeURL 生成去重用的 URL 键：忽略协议、默认端口、末尾斜杠、片段和跟踪参数
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := parseLoose(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host = net.JoinHostPort(host, port)
	}

	path := strings.TrimRight(u.EscapedPath(), "/")

	key := host + path
	if query := normalizeQuery(u.RawQuery); query != "" {
		key += "?" + query
	}
	return key
}

// normalizeQuery 去掉跟踪参数并排序；含非法转义时按原文逐段保留，不丢参数
func normalizeQuery(raw string) string {
	if raw == "" {
		return ""
	}
	if query, err := url.ParseQuery(raw); err == nil {
		for key := range query {
			if isTrackingParam(key) {
				query.Del(key)
			}
		}
		return query.Encode()
	}

	var kept []string
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		name, _, _ := strings.Cut(pair, "=")
		if unescaped, err := url.QueryUnescape(name); err == nil {
			name = unescaped
		}
		if !isTrackingParam(name) {
			kept = append(kept, pair)
		}
	}
	sort.Strings(kept)
	return strings.Join(kept, "&")
}

// hostOf 返回小写主机名（不含端口），解析失败返回空
func hostOf(raw string) string {
	u, err := parseLoose(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// parseLoose 兼容缺少协议的 URL，例如 "zhihu.com/question/1"
func parseLoose(raw string) (*url.URL, error) {
	if strings.HasPrefix(raw, "//") {
		raw = "http:" + raw
	} else if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	return url.Parse(raw)
}

// engineOrder 按优先级排列引擎：先 priority 中列出的，再按原调度顺序排其余的
func engineOrder(outcomes []EngineOutcome, priority []string) []int {
	order := make([]int, 0, len(outcomes))
	used := make([]bool, len(outcomes))
	for _, name := range priority {
		for i, o := range outcomes {
			if !used[i] && o.Engine == name {
				order = append(order, i)
				used[i] = true
			}
		}
	}
	for i := range outcomes {
		if !used[i] {
			order = append(order, i)
		}
	}
	return order
}

// Merge 合并成功引擎的结果并按规范化 URL 去重，高优先级引擎的结果优先保留
func Merge(outcomes []EngineOutcome, priority []string) []RawResult {
	seen := make(map[string]bool)
	var merged []RawResult
	for _, idx := range engineOrder(outcomes, priority) {
		o := outcomes[idx]
		if !o.OK() {
			continue
		}
		for _, r := range o.Results {
			key := NormalizeURL(r.URL)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if r.Engine == "" {
				r.Engine = o.Engine
			}
			merged = append(merged, r)
		}
	}
	return merged
}
