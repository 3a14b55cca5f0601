// Package terminology 提供 CDISC 术语表的只读存储
// 进程启动时从打包的 JSON 资源加载一次，运行期间不可变
package terminology

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrNotFound 域代码不存在
var ErrNotFound = errors.New("domain code not found")

// DomainEntry 域条目
type DomainEntry struct {
	Code          string   `json:"code"`
	Label         string   `json:"label"`
	Description   string   `json:"description"`
	CoreVariables []string `json:"core_variables"`
}

// resource 打包的术语表资源格式
type resource struct {
	SystemInstruction         string         `json:"system_instruction"`
	CodeExample               string         `json:"code_example"`
	CodePromptTemplate        string         `json:"code_prompt_template"`
	ExplanationPromptTemplate string         `json:"explanation_prompt_template"`
	CodeIndicators            []string       `json:"code_indicators"`
	ExplanationIndicators     []string       `json:"explanation_indicators"`
	Domains                   []*DomainEntry `json:"domains"`
}

// Store 只读术语存储
type Store struct {
	domains map[string]*DomainEntry
	codes   []string // 排序后的域代码，保证遍历顺序稳定

	systemInstruction         string
	codePromptTemplate        string
	explanationPromptTemplate string
	codeIndicators            []string
	explanationIndicators     []string
}

// Load 从 JSON 资源文件加载术语存储
// 资源缺失或格式错误时返回错误，调用方应终止启动
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read terminology resource: %w", err)
	}

	var res resource
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse terminology resource: %w", err)
	}

	if res.SystemInstruction == "" {
		return nil, fmt.Errorf("terminology resource missing system_instruction")
	}
	if len(res.Domains) == 0 {
		return nil, fmt.Errorf("terminology resource contains no domains")
	}

	domains := make(map[string]*DomainEntry, len(res.Domains))
	codes := make([]string, 0, len(res.Domains))
	for _, entry := range res.Domains {
		if entry.Code == "" {
			return nil, fmt.Errorf("terminology resource contains a domain without a code")
		}
		if len(entry.CoreVariables) == 0 {
			return nil, fmt.Errorf("domain %s has no core variables", entry.Code)
		}
		if _, exists := domains[entry.Code]; exists {
			return nil, fmt.Errorf("duplicate domain code: %s", entry.Code)
		}
		domains[entry.Code] = entry
		codes = append(codes, entry.Code)
	}
	sort.Strings(codes)

	// 将代码示例拼接到系统指令之后，作为生成风格的参考
	instruction := res.SystemInstruction
	if res.CodeExample != "" {
		instruction += "\n\nHere is an example of what a good dbt model query looks like:\n" +
			res.CodeExample + "\nPlease use that as a guide."
	}

	return &Store{
		domains:                   domains,
		codes:                     codes,
		systemInstruction:         instruction,
		codePromptTemplate:        res.CodePromptTemplate,
		explanationPromptTemplate: res.ExplanationPromptTemplate,
		codeIndicators:            res.CodeIndicators,
		explanationIndicators:     res.ExplanationIndicators,
	}, nil
}

// Lookup 按域代码查找条目，区分大小写
func (s *Store) Lookup(code string) (*DomainEntry, error) {
	entry, ok := s.domains[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return entry, nil
}

// Codes 返回全部域代码（字典序）
func (s *Store) Codes() []string {
	return s.codes
}

// SystemInstruction 返回系统指令（含代码示例）
func (s *Store) SystemInstruction() string {
	return s.systemInstruction
}

// CodePromptTemplate 返回代码类查询的提示词模板
func (s *Store) CodePromptTemplate() string {
	return s.codePromptTemplate
}

// ExplanationPromptTemplate 返回解释类查询的提示词模板
func (s *Store) ExplanationPromptTemplate() string {
	return s.explanationPromptTemplate
}

// CodeIndicators 返回代码类查询的指示词列表
func (s *Store) CodeIndicators() []string {
	return s.codeIndicators
}

// ExplanationIndicators 返回解释类查询的指示词列表
func (s *Store) ExplanationIndicators() []string {
	return s.explanationIndicators
}
