// Package sqlcheck 对补全结果中的 SQL 代码块做语法体检
// 使用 PostgreSQL 官方解析器，检查结果仅作为响应元数据，不拦截响应
package sqlcheck

import (
	"regexp"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// sqlFence 匹配 ```sql 围栏代码块
var sqlFence = regexp.MustCompile("(?s)```sql\\s*\\n(.*?)```")

// jinjaExpr 匹配 dbt 的 {{ ... }} 表达式
var jinjaExpr = regexp.MustCompile(`\{\{[^}]*\}\}`)

// jinjaStmt 匹配 dbt 的 {% ... %} 控制语句
var jinjaStmt = regexp.MustCompile(`\{%[^%]*%\}`)

// Report 一次响应的 SQL 体检结果
type Report struct {
	Blocks int      `json:"blocks"`
	Valid  int      `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Clean 是否所有 SQL 块都通过了语法检查
func (r *Report) Clean() bool {
	return r.Blocks == r.Valid
}

// ExtractSQLBlocks 提取响应文本中的 ```sql 围栏代码块
func ExtractSQLBlocks(text string) []string {
	matches := sqlFence.FindAllStringSubmatch(text, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		block := strings.TrimSpace(m[1])
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// Inspect 对响应中的全部 SQL 块做语法检查
// dbt 模板语法会在解析前被替换为占位符，避免误报
func Inspect(text string) *Report {
	report := &Report{}
	for _, block := range ExtractSQLBlocks(text) {
		report.Blocks++
		if err := checkSyntax(block); err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.Valid++
	}
	return report
}

// checkSyntax 解析单个 SQL 块
func checkSyntax(block string) error {
	prepared := stripTemplating(block)
	_, err := pg_query.Parse(prepared)
	return err
}

// stripTemplating 将 dbt/Jinja 语法替换为可解析的占位符
func stripTemplating(block string) string {
	block = jinjaExpr.ReplaceAllString(block, "placeholder_relation")
	block = jinjaStmt.ReplaceAllString(block, "")
	return block
}
