// Package edcmeta 从上传的 EDC 元数据中解析与查询相关的源视图和变量
package edcmeta

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// domainViewPatterns CDISC 域代码到 EDC 视图名模式的直接映射
var domainViewPatterns = map[string][]string{
	"DM": {"DM", "DEMO", "SUBJECT"},
	"AE": {"AE", "ADVERSE"},
	"LB": {"LAB", "BLOOD", "SPECIMEN", "URINE"},
	"EX": {"EX", "EXPOSURE", "DRUG", "MEDICATION", "TREATMENT"},
	"CM": {"CM", "CONMED", "MEDICATION"},
	"MH": {"MH", "HISTORY", "MEDICAL"},
	"VS": {"VS", "VITAL", "BP"},
	"TU": {"TU", "TUMOR", "LESION"},
	"RS": {"RS", "RESPONSE", "RECIST", "EFFICACY"},
	"EG": {"EG", "ECG", "ELECTRO"},

	"ADSL": {"ADSL", "SUBJECT", "DEMO"},
	"ADAE": {"ADAE", "AE"},
	"ADLB": {"ADLB", "LAB"},
	"ADEX": {"ADEX", "EX", "EXPOSURE"},
	"ADCM": {"ADCM", "CM", "MEDICATION"},
	"ADRS": {"ADRS", "RESPONSE"},
	"ADTU": {"ADTU", "TUMOR"},
	"ADVS": {"ADVS", "VS", "VITAL"},
}

// queryDomainPatterns 用户查询措辞到 CDISC 域代码的关键词模式
var queryDomainPatterns = map[string][]string{
	"DM": {"demographic", "subject", "patient", "dm", "subject characteristic"},
	"AE": {"adverse event", "ae", "safety", "adverse", "side effect", "reaction"},
	"LB": {"lab", "laboratory", "lb", "test", "result", "specimen"},
	"EX": {"exposure", "administration", "dose", "ex", "drug", "medication taken", "treatment"},
	"CM": {"concomitant", "medication", "treatment", "drug", "cm", "conmed"},
	"MH": {"medical history", "mh", "prior condition", "previous condition"},
	"DH": {"disease history", "dh", "diagnosis", "cancer history"},
	"RS": {"response", "recist", "rs", "assessment", "evaluation"},
	"TU": {"tumor", "lesion", "cancer", "tu", "mass", "nodule"},
	"VS": {"vital", "signs", "vs", "blood pressure", "temperature", "pulse"},

	"ADSL":  {"subject level", "adsl", "baseline", "population", "disposition"},
	"ADAE":  {"adverse event analysis", "adae", "safety analysis"},
	"ADLB":  {"laboratory analysis", "adlb", "lab test analysis"},
	"ADEX":  {"exposure analysis", "adex", "dosing analysis", "treatment analysis"},
	"ADCM":  {"concomitant medication analysis", "adcm"},
	"ADMH":  {"medical history analysis", "admh"},
	"ADRS":  {"response analysis", "adrs", "efficacy analysis"},
	"ADTU":  {"tumor analysis", "adtu", "lesion analysis"},
	"ADVS":  {"vital signs analysis", "advs"},
	"ADTTE": {"time to event", "adtte", "survival", "duration", "tte"},
	"ADTR":  {"tumor response", "adtr", "best response", "bor", "overall response"},
}

// Variable 视图中的单个变量
type Variable struct {
	Field string
	Label string
	Type  string
}

// Describe 变量的提示词内联形式
func (v Variable) Describe() string {
	if v.Label == "" {
		return v.Field
	}
	return fmt.Sprintf("%s (%s)", v.Field, v.Label)
}

// Catalog 一份 EDC 元数据的内存目录
// 视图解析结果会缓存，同一域的重复查询走快速路径
type Catalog struct {
	mu    sync.Mutex
	views []string
	vars  map[string][]Variable
	cache map[string]string // 域代码（小写）→ 视图名
}

// NewCatalog 从视图变量表构建目录并预热域缓存
func NewCatalog(vars map[string][]Variable) *Catalog {
	views := make([]string, 0, len(vars))
	for view := range vars {
		views = append(views, view)
	}
	sort.Strings(views)

	c := &Catalog{
		views: views,
		vars:  vars,
		cache: make(map[string]string),
	}

	// 按域模式预填缓存，多个命中时取最短的视图名
	for domain, patterns := range domainViewPatterns {
		for _, pattern := range patterns {
			matched := c.viewsContaining(pattern)
			if len(matched) == 0 {
				continue
			}
			sort.Slice(matched, func(i, j int) bool { return len(matched[i]) < len(matched[j]) })
			c.cache[strings.ToLower(domain)] = matched[0]
			break
		}
	}

	return c
}

// Views 返回全部视图名（字典序）
func (c *Catalog) Views() []string {
	return c.views
}

// RelevantView 解析与查询最相关的 EDC 视图
// 依次尝试：缓存命中的域词、词边界域代码、关键词打分，最后回退到首个视图
func (c *Catalog) RelevantView(query string) string {
	if len(c.views) == 0 {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	queryLower := strings.ToLower(strings.TrimSpace(query))

	for _, word := range strings.Fields(queryLower) {
		if view, ok := c.cache[word]; ok {
			return view
		}
	}

	cached := make([]string, 0, len(c.cache))
	for domain := range c.cache {
		cached = append(cached, domain)
	}
	sort.Strings(cached)
	for _, domain := range cached {
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(domain) + `\b`)
		if pattern.MatchString(queryLower) {
			return c.cache[domain]
		}
	}

	if best := c.bestDomain(queryLower); best != "" {
		if view, ok := c.cache[strings.ToLower(best)]; ok {
			return view
		}
		if view := c.viewForDomain(best); view != "" {
			c.cache[strings.ToLower(best)] = view
			return view
		}
	}

	return c.views[0]
}

// Variables 返回视图的全部变量，按字段名排序
func (c *Catalog) Variables(view string) []Variable {
	vars := c.vars[view]
	out := make([]Variable, len(vars))
	copy(out, vars)
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// VariableDescriptors 返回视图变量的提示词内联形式
func (c *Catalog) VariableDescriptors(view string) []string {
	vars := c.Variables(view)
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Describe())
	}
	return out
}

// bestDomain 按关键词打分选出最匹配的域，无命中返回空
func (c *Catalog) bestDomain(queryLower string) string {
	bestDomain := ""
	bestScore := 0

	// 遍历顺序固定，分数相同时取字典序靠前的域
	domains := make([]string, 0, len(queryDomainPatterns))
	for domain := range queryDomainPatterns {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	for _, domain := range domains {
		score := 0
		for _, pattern := range queryDomainPatterns[domain] {
			if strings.Contains(queryLower, pattern) {
				score++
			}
		}
		// 查询中直接出现域代码时加权
		if strings.Contains(queryLower, strings.ToLower(domain)) {
			score += 3
		}
		if score > bestScore {
			bestScore = score
			bestDomain = domain
		}
	}

	return bestDomain
}

// viewForDomain 按域的视图名模式匹配视图，优先非 _RAW 版本
func (c *Catalog) viewForDomain(domain string) string {
	patterns, ok := domainViewPatterns[domain]
	if !ok {
		patterns = []string{domain}
	}

	for _, pattern := range patterns {
		matched := c.viewsContaining(pattern)
		if len(matched) == 0 {
			continue
		}
		for _, view := range matched {
			if !strings.HasSuffix(strings.ToUpper(view), "_RAW") {
				return view
			}
		}
		return matched[0]
	}
	return ""
}

// viewsContaining 返回名称包含模式的视图（不区分大小写）
func (c *Catalog) viewsContaining(pattern string) []string {
	pattern = strings.ToLower(pattern)
	var matched []string
	for _, view := range c.views {
		if strings.Contains(strings.ToLower(view), pattern) {
			matched = append(matched, view)
		}
	}
	return matched
}
