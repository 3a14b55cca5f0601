package prompt

import "strings"

// QueryType 查询类型
type QueryType string

const (
	// QueryTypeCode 代码生成类查询
	QueryTypeCode QueryType = "code"
	// QueryTypeExplanation 概念解释类查询
	QueryTypeExplanation QueryType = "explanation"
)

// sqlPatterns SQL 关键字快速路径，出现即判定为代码类查询
var sqlPatterns = []string{"select", "from", "where", "join", "group by", "order by", "having", "union"}

// codePhrases 代码类查询的常见短语
var codePhrases = []string{"create a", "generate a", "write a", "build a", "implement", "code for"}

// explanationPhrases 解释类查询的常见短语
var explanationPhrases = []string{"what is", "how does", "explain", "why is", "tell me about", "describe"}

// defaultCodeIndicators 术语表未提供时的代码指示词
var defaultCodeIndicators = []string{
	"create", "generate", "write", "code", "query", "sql", "dbt",
	"transform", "model", "script", "implementation", "mapping", "derivation",
}

// defaultExplanationIndicators 术语表未提供时的解释指示词
var defaultExplanationIndicators = []string{
	"explain", "what", "why", "how", "describe", "help me understand",
	"tell me about", "difference between", "compare", "analysis",
}

// Classifier 查询类型分类器
type Classifier struct {
	codeIndicators        []string
	explanationIndicators []string
}

// NewClassifier 创建分类器，指示词列表为空时使用内置列表
func NewClassifier(codeIndicators, explanationIndicators []string) *Classifier {
	if len(codeIndicators) == 0 {
		codeIndicators = defaultCodeIndicators
	}
	if len(explanationIndicators) == 0 {
		explanationIndicators = defaultExplanationIndicators
	}
	return &Classifier{
		codeIndicators:        codeIndicators,
		explanationIndicators: explanationIndicators,
	}
}

// Classify 判断查询是代码生成还是概念解释
func (c *Classifier) Classify(query string) QueryType {
	query = strings.ToLower(query)

	for _, pattern := range sqlPatterns {
		if strings.Contains(query, pattern) {
			return QueryTypeCode
		}
	}
	for _, phrase := range codePhrases {
		if strings.Contains(query, phrase) {
			return QueryTypeCode
		}
	}
	for _, phrase := range explanationPhrases {
		if strings.Contains(query, phrase) {
			return QueryTypeExplanation
		}
	}

	words := make(map[string]bool)
	for _, w := range strings.Fields(query) {
		words[w] = true
	}

	codeScore := 0
	for _, word := range c.codeIndicators {
		if words[word] {
			codeScore++
		}
	}
	explanationScore := 0
	for _, word := range c.explanationIndicators {
		if words[word] {
			explanationScore++
		}
	}

	// 平局（含双零）归为解释类
	if codeScore > explanationScore {
		return QueryTypeCode
	}
	return QueryTypeExplanation
}
