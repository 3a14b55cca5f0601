// Package prompt 将会话状态、术语上下文和用户消息组装为发送给补全服务的提示
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/clinforge/cdisc-assistant/internal/model"
	"github.com/clinforge/cdisc-assistant/internal/terminology"
	"github.com/cloudwego/eino/schema"
)

// maxViewVariables 提示词中内联的 EDC 变量数量上限
const maxViewVariables = 10

// defaultCodeTemplate 术语表未提供时的代码类模板
const defaultCodeTemplate = "{query}. Create a dbt transformation in SQL that implements this for BigQuery, " +
	"following CDISC standards (SDTM or ADaM as appropriate) for oncology trials.\n" +
	"Available source structure:\nView: {relevant_view}.\nVariables: {relevant_vars}.\n" +
	"Generate SQL that uses these source variables for the transformation, with no extra text."

// defaultExplanationTemplate 术语表未提供时的解释类模板
const defaultExplanationTemplate = "{query}. Provide a brief, direct explanation based on:\n" +
	"Source Structure: {relevant_view}.\n" +
	"Focus on CDISC standards (SDTM and ADaM) for oncology trials.\nRespond without additional text."

// ViewContext 从 EDC 元数据解析出的源视图上下文
type ViewContext struct {
	View      string
	Variables []string // 形如 "FIELD (label)" 的描述
}

// Input 组装提示所需的全部输入
type Input struct {
	History     []*model.Message
	Files       []*model.FileRecord
	UserMessage string
	QueryType   QueryType
	View        *ViewContext
}

// Assembler 提示组装器
// 纯函数：输出只依赖输入与只读的术语存储
type Assembler struct {
	terms         *terminology.Store
	maxTranscript int
}

// NewAssembler 创建提示组装器
// maxTranscript 为提示中保留的历史消息上限，超出时从最旧端截断
func NewAssembler(terms *terminology.Store, maxTranscript int) *Assembler {
	return &Assembler{terms: terms, maxTranscript: maxTranscript}
}

// Build 组装完整提示
// 顺序：系统指令 + 术语上下文 + 文件描述符，截断后的会话历史，最后是当前用户消息
func (a *Assembler) Build(in *Input) []*schema.Message {
	var system strings.Builder
	system.WriteString(a.terms.SystemInstruction())

	if tc := a.terminologyContext(in.UserMessage); tc != "" {
		system.WriteString("\n\nRelevant CDISC domains:\n")
		system.WriteString(tc)
	}

	if fc := fileContext(in.Files); fc != "" {
		system.WriteString("\n\nReference files provided in this session:\n")
		system.WriteString(fc)
	}

	messages := []*schema.Message{{Role: schema.System, Content: system.String()}}

	history := in.History
	if a.maxTranscript > 0 && len(history) > a.maxTranscript {
		history = history[len(history)-a.maxTranscript:]
	}
	for _, msg := range history {
		switch msg.Role {
		case model.RoleAssistant:
			messages = append(messages, &schema.Message{Role: schema.Assistant, Content: msg.Content})
		default:
			messages = append(messages, &schema.Message{Role: schema.User, Content: msg.Content})
		}
	}

	messages = append(messages, &schema.Message{Role: schema.User, Content: a.userTurn(in)})
	return messages
}

// terminologyContext 为消息中提及的域代码内联术语条目
// 匹配区分大小写，按词边界切分；未提及的域不注入，保证提示有界
func (a *Assembler) terminologyContext(message string) string {
	mentioned := make(map[string]bool)
	for _, token := range strings.FieldsFunc(message, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		mentioned[token] = true
	}

	var b strings.Builder
	for _, code := range a.terms.Codes() {
		if !mentioned[code] {
			continue
		}
		entry, err := a.terms.Lookup(code)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s): %s CORE variables: %s.\n",
			entry.Code, entry.Label, entry.Description, strings.Join(entry.CoreVariables, ", "))
	}
	return b.String()
}

// fileContext 生成文件描述符列表，优先文件在前
// 只含描述符，不内联文件内容，保证提示有界
func fileContext(files []*model.FileRecord) string {
	if len(files) == 0 {
		return ""
	}

	ordered := make([]*model.FileRecord, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority && !ordered[j].Priority
	})

	var b strings.Builder
	for _, rec := range ordered {
		fmt.Fprintf(&b, "- %s (%s, %s)\n", rec.Name, rec.Label(), rec.Type)
	}
	return b.String()
}

// userTurn 生成最终用户回合，按查询类型套用模板并注入视图上下文
func (a *Assembler) userTurn(in *Input) string {
	if in.View == nil || in.View.View == "" {
		return in.UserMessage
	}

	switch in.QueryType {
	case QueryTypeCode:
		if len(in.View.Variables) == 0 {
			return in.UserMessage
		}
		vars := in.View.Variables
		if len(vars) > maxViewVariables {
			vars = vars[:maxViewVariables]
		}
		tmpl := a.terms.CodePromptTemplate()
		if tmpl == "" {
			tmpl = defaultCodeTemplate
		}
		return strings.NewReplacer(
			"{query}", in.UserMessage,
			"{relevant_view}", in.View.View,
			"{relevant_vars}", strings.Join(vars, ", "),
		).Replace(tmpl)

	case QueryTypeExplanation:
		tmpl := a.terms.ExplanationPromptTemplate()
		if tmpl == "" {
			tmpl = defaultExplanationTemplate
		}
		return strings.NewReplacer(
			"{query}", in.UserMessage,
			"{relevant_view}", in.View.View,
		).Replace(tmpl)
	}

	return in.UserMessage
}
