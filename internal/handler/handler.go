// Package handler 提供 HTTP 处理器
package handler

import (
	"github.com/clinforge/cdisc-assistant/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chat   *ChatHandler
	File   *FileHandler
	System *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Chat:   NewChatHandler(svc),
		File:   NewFileHandler(svc),
		System: NewSystemHandler(svc),
	}
}
