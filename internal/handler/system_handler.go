package handler

import (
	"strings"

	"github.com/clinforge/cdisc-assistant/internal/service"
	"github.com/gin-gonic/gin"
)

// SystemHandler 系统处理器
type SystemHandler struct {
	svc *service.Services
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(svc *service.Services) *SystemHandler {
	return &SystemHandler{svc: svc}
}

// Ping 存活检查
func (h *SystemHandler) Ping(c *gin.Context) {
	ok(c, gin.H{"message": "pong"})
}

// Health 健康检查
func (h *SystemHandler) Health(c *gin.Context) {
	ok(c, gin.H{
		"status":  "ok",
		"version": h.svc.Config.App.Version,
	})
}

// queryTypeRequest /query_type 请求体
type queryTypeRequest struct {
	Query string `json:"query"`
}

// QueryType 返回查询分类结果，供前端提示使用
func (h *SystemHandler) QueryType(c *gin.Context) {
	var req queryTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, gin.H{"message": "Error parsing request data."})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		fail(c, gin.H{"message": "No query provided"})
		return
	}

	ok(c, gin.H{"query_type": h.svc.Chat.QueryType(req.Query)})
}
