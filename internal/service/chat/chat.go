// Package chat 编排一次对话回合：校验、组装提示、调用补全并落地会话状态
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/clinforge/cdisc-assistant/internal/model"
	"github.com/clinforge/cdisc-assistant/internal/service/completion"
	"github.com/clinforge/cdisc-assistant/internal/service/edcmeta"
	"github.com/clinforge/cdisc-assistant/internal/service/prompt"
	"github.com/clinforge/cdisc-assistant/internal/service/session"
	"github.com/clinforge/cdisc-assistant/internal/service/sqlcheck"
	"github.com/clinforge/cdisc-assistant/internal/service/upload"
	"github.com/cloudwego/eino/schema"
)

// maxMessageLength 用户消息的字符数上限
const maxMessageLength = 2000

// ErrEmptyMessage 用户消息为空
var ErrEmptyMessage = errors.New("empty message")

// ErrMessageTooLong 用户消息超长
var ErrMessageTooLong = errors.New("message too long")

// Completer 补全调用接口
type Completer interface {
	Complete(ctx context.Context, messages []*schema.Message) (string, error)
}

// Metadata 一次成功回合的响应元数据
type Metadata struct {
	QueryType      prompt.QueryType `json:"query_type"`
	ResponseLength int              `json:"response_length"`
	HasCodeBlocks  bool             `json:"has_code_blocks"`
	RelevantView   string           `json:"relevant_view,omitempty"`
	SessionID      string           `json:"session_id"`
	SQLCheck       *sqlcheck.Report `json:"sql_check,omitempty"`
}

// Result 一次成功回合的结果
type Result struct {
	Response string
	Metadata *Metadata
}

// Service 对话编排服务
type Service struct {
	sessions   *session.Manager
	registry   *upload.Registry
	assembler  *prompt.Assembler
	classifier *prompt.Classifier
	completer  Completer
	analyzer   *edcmeta.Analyzer // 可为 nil，此时跳过 EDC 视图解析

	mu       sync.Mutex
	catalogs map[string]*edcmeta.Catalog // 存储路径 → 已加载目录
}

// NewService 创建对话编排服务
func NewService(
	sessions *session.Manager,
	registry *upload.Registry,
	assembler *prompt.Assembler,
	classifier *prompt.Classifier,
	completer Completer,
	analyzer *edcmeta.Analyzer,
) *Service {
	return &Service{
		sessions:   sessions,
		registry:   registry,
		assembler:  assembler,
		classifier: classifier,
		completer:  completer,
		analyzer:   analyzer,
		catalogs:   make(map[string]*edcmeta.Catalog),
	}
}

// Send 处理一次用户消息
// 用户消息先入会话，补全失败时不追加助手消息，历史保持可重放
func (s *Service) Send(ctx context.Context, sessionID, message string) (*Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return nil, ErrMessageTooLong
	}

	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}
	if _, err := s.sessions.Append(ctx, sessionID, model.RoleUser, message); err != nil {
		return nil, fmt.Errorf("failed to record user message: %w", err)
	}

	queryType := s.classifier.Classify(message)

	files, err := s.registry.List(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}

	view := s.resolveView(ctx, message, files)

	messages := s.assembler.Build(&prompt.Input{
		History:     history,
		Files:       files,
		UserMessage: message,
		QueryType:   queryType,
		View:        view,
	})

	content, err := s.completer.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	content = sanitizeText(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty response after sanitization", completion.ErrUpstream)
	}

	if _, err := s.sessions.Append(ctx, sessionID, model.RoleAssistant, content); err != nil {
		return nil, fmt.Errorf("failed to record assistant message: %w", err)
	}

	meta := &Metadata{
		QueryType:      queryType,
		ResponseLength: len(content),
		HasCodeBlocks:  strings.Contains(content, "```"),
		SessionID:      sessionID,
	}
	if view != nil {
		meta.RelevantView = view.View
	}
	if meta.HasCodeBlocks {
		meta.SQLCheck = sqlcheck.Inspect(content)
	}

	return &Result{Response: content, Metadata: meta}, nil
}

// History 返回会话的完整消息历史
func (s *Service) History(ctx context.Context, sessionID string) ([]*model.Message, error) {
	return s.sessions.History(ctx, sessionID)
}

// QueryType 返回消息的查询类型，供前端提示使用
func (s *Service) QueryType(message string) prompt.QueryType {
	return s.classifier.Classify(message)
}

// Clear 清空会话历史与已上传文件
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	removed, err := s.sessions.Clear(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.mu.Lock()
	for _, rec := range removed {
		delete(s.catalogs, rec.StoragePath)
	}
	s.mu.Unlock()

	if err := s.registry.DiscardStored(ctx, sessionID); err != nil {
		log.Printf("Warning: failed to discard stored files for session %s: %v", sessionID, err)
	}
	return nil
}

// RemoveFile 删除会话中的单个文件，幂等；文件不存在时返回 false
// 同时淘汰该文件对应的已缓存 EDC 目录
func (s *Service) RemoveFile(ctx context.Context, sessionID, name string) (bool, error) {
	rec, err := s.registry.Remove(ctx, sessionID, name)
	if err != nil {
		return false, fmt.Errorf("failed to remove file: %w", err)
	}
	if rec == nil {
		return false, nil
	}

	s.mu.Lock()
	delete(s.catalogs, rec.StoragePath)
	s.mu.Unlock()
	return true, nil
}

// resolveView 从会话的 EDC 元数据文件解析相关视图
// 解析失败只降级为无视图上下文，不中断回合
func (s *Service) resolveView(ctx context.Context, message string, files []*model.FileRecord) *prompt.ViewContext {
	if s.analyzer == nil {
		return nil
	}

	var edcFile *model.FileRecord
	for _, rec := range files {
		if rec.Priority && rec.Type == model.FileTypeCSV {
			edcFile = rec
			break
		}
	}
	if edcFile == nil {
		return nil
	}

	path, ok := s.registry.AbsolutePath(edcFile)
	if !ok {
		return nil
	}

	catalog, err := s.loadCatalog(ctx, edcFile.StoragePath, path)
	if err != nil {
		log.Printf("Warning: failed to load edc metadata from %s: %v", edcFile.Name, err)
		return nil
	}

	view := catalog.RelevantView(message)
	if view == "" {
		return nil
	}
	return &prompt.ViewContext{
		View:      view,
		Variables: catalog.VariableDescriptors(view),
	}
}

// loadCatalog 按存储路径缓存已解析的 EDC 目录
// 同名文件重新上传会换新的存储路径，缓存随之失效
func (s *Service) loadCatalog(ctx context.Context, key, path string) (*edcmeta.Catalog, error) {
	s.mu.Lock()
	if catalog, ok := s.catalogs[key]; ok {
		s.mu.Unlock()
		return catalog, nil
	}
	s.mu.Unlock()

	catalog, err := s.analyzer.LoadCSV(ctx, path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.catalogs[key] = catalog
	s.mu.Unlock()
	return catalog, nil
}

// sanitizeText 清理补全文本中的序列化噪声
func sanitizeText(text string) string {
	text = strings.ReplaceAll(text, "[object Object]", "")
	return strings.TrimSpace(text)
}

// UserMessage 将错误映射为用户可见的提示文案
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return "Please enter a message to continue."
	case errors.Is(err, ErrMessageTooLong):
		return "Your message is too long. Please limit your query to 2000 characters."
	case errors.Is(err, completion.ErrRateLimited):
		return "API quota exceeded. Please try again in a moment."
	default:
		return "The service is experiencing technical difficulties. Please try again later."
	}
}
