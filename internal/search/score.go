package search

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	dateRe = regexp.MustCompile(`(?:19|20)\d{2}\s?[-/.年]\s?\d{1,2}|\d{1,2}月\d{1,2}日|(?i:\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}\b)`)

	numericRe = regexp.MustCompile(`\d+(?:\.\d+)?\s?(?:%|％|元|万|亿|美元|公里|平米|km|kg)|[$¥￥]\s?\d|\d+\.\d+`)

	questionRe = regexp.MustCompile(`(?i)[?？]|如何|怎么|怎样|为什么|什么|哪些|哪家|问答|回答|\bhow\b|\bwhat\b|\bwhy\b|\bfaq\b|q&a`)

	punctRunRe = regexp.MustCompile(`[!！?？]{3,}|[!！]{2,}`)
)

// 标点占可见字符比例超过该值视为垃圾内容
const punctuationSpamRatio = 0.3

// cjkTables 用来近似识别中文内容的 Unicode 区间
var cjkTables = []*unicode.RangeTable{unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul}

// Scorer 结果打分器，只读配置，可并发使用
type Scorer struct {
	opts    ScoringOptions
	domains []string
}

// NewScorer 创建打分器
func NewScorer(opts ScoringOptions) *Scorer {
	domains := make([]string, 0, len(opts.PremiumDomains))
	for _, d := range opts.PremiumDomains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			domains = append(domains, d)
		}
	}
	return &Scorer{opts: opts, domains: domains}
}

// Score 对单条结果打分
func (s *Scorer) Score(r RawResult) ScoredResult {
	ratio := ChineseRatio(r.Title + " " + r.Snippet)
	isChinese := ratio >= s.opts.ChineseThreshold && ratio > 0
	premium := s.IsPremium(r.URL)

	quality := round2(clamp(s.contentQuality(r)))

	value := quality
	if premium {
		value += s.opts.PremiumBoost
	}
	if isChinese && s.opts.PreferChinese {
		value += s.opts.ChineseBoost
	}

	return ScoredResult{
		RawResult:      r,
		ContentQuality: quality,
		BusinessValue:  round2(clamp(value)),
		ChineseRatio:   round2(ratio),
		IsChinese:      isChinese,
		IsPremium:      premium,
	}
}

// IsPremium 判断 URL 的域名是否属于优质来源
func (s *Scorer) IsPremium(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, d := range s.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func (s *Scorer) contentQuality(r RawResult) float64 {
	w := s.opts.Weights
	snippet := strings.TrimSpace(r.Snippet)
	title := strings.TrimSpace(r.Title)
	text := title + " " + snippet

	score := w.Base

	snippetLen := utf8.RuneCountInString(snippet)
	score += w.SnippetMax * float64(min(snippetLen, w.SnippetCapRunes)) / float64(w.SnippetCapRunes)
	if strings.HasSuffix(snippet, "...") || strings.HasSuffix(snippet, "…") {
		score -= w.TruncatedPenalty
	}

	titleLen := utf8.RuneCountInString(title)
	score += w.TitleMax * float64(min(titleLen, w.TitleCapRunes)) / float64(w.TitleCapRunes)

	if dateRe.MatchString(text) {
		score += w.Date
	}
	if numericRe.MatchString(text) {
		score += w.Numeric
	}
	if questionRe.MatchString(text) {
		score += w.QuestionAnswer
	}

	if hasPunctuationSpam(text) {
		score -= w.PunctuationSpam
	}
	if hasCapsRun(text) {
		score -= w.CapsSpam
	}
	return score
}

// ChineseRatio 返回 CJK 字符占可见字符的比例
func ChineseRatio(text string) float64 {
	var cjk, visible int
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		visible++
		if unicode.IsOneOf(cjkTables, r) {
			cjk++
		}
	}
	if visible == 0 {
		return 0
	}
	return float64(cjk) / float64(visible)
}

func hasPunctuationSpam(text string) bool {
	if punctRunRe.MatchString(text) {
		return true
	}
	var punct, visible int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		visible++
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			punct++
		}
	}
	return visible >= 10 && float64(punct)/float64(visible) > punctuationSpamRatio
}

// hasCapsRun 是否有连续三个以上全大写单词
func hasCapsRun(text string) bool {
	run := 0
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if isCapsWord(word) {
			run++
			if run >= 3 {
				return true
			}
			continue
		}
		run = 0
	}
	return false
}

func isCapsWord(word string) bool {
	if len(word) < 2 {
		return false
	}
	for _, r := range word {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
