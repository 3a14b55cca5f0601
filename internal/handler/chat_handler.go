package handler

import (
	"log"

	"github.com/clinforge/cdisc-assistant/internal/middleware"
	"github.com/clinforge/cdisc-assistant/internal/service"
	"github.com/clinforge/cdisc-assistant/internal/service/chat"
	"github.com/gin-gonic/gin"
)

// ChatHandler 聊天处理器
type ChatHandler struct {
	svc *service.Services
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(svc *service.Services) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// chatRequest /chat 请求体
type chatRequest struct {
	Message string `json:"message"`
}

// SendMessage 处理一次用户消息
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, gin.H{"response": "Error parsing request data. Please check your request format."})
		return
	}

	sessionID := middleware.GetSessionID(c)

	result, err := h.svc.Chat.Send(c.Request.Context(), sessionID, req.Message)
	if err != nil {
		log.Printf("chat failed for session %s: %v", sessionID, err)
		fail(c, gin.H{
			"response":   chat.UserMessage(err),
			"session_id": sessionID,
		})
		return
	}

	ok(c, gin.H{
		"response": result.Response,
		"metadata": result.Metadata,
	})
}

// GetHistory 返回当前会话的消息历史
func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)

	history, err := h.svc.Chat.History(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("failed to load history for session %s: %v", sessionID, err)
		fail(c, gin.H{"message": "Failed to load chat history."})
		return
	}

	ok(c, gin.H{"messages": history})
}

// ClearChat 清空会话历史与已上传文件
func (h *ChatHandler) ClearChat(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)

	if err := h.svc.Chat.Clear(c.Request.Context(), sessionID); err != nil {
		log.Printf("failed to clear session %s: %v", sessionID, err)
		fail(c, gin.H{"message": "Error clearing chat."})
		return
	}

	ok(c, gin.H{
		"message":      "Chat history cleared",
		"welcome_html": h.svc.WelcomeHTML,
	})
}
