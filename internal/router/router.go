// Package router 配置 HTTP 路由
package router

import (
	"github.com/clinforge/cdisc-assistant/internal/config"
	"github.com/clinforge/cdisc-assistant/internal/handler"
	"github.com/clinforge/cdisc-assistant/internal/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h *handler.Handlers) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.SessionMiddleware(cfg.Session.CookieName, cfg.Session.Secret))

	// 系统
	r.GET("/ping", h.System.Ping)
	r.GET("/health", h.System.Health)

	// 对话
	r.POST("/chat", h.Chat.SendMessage)
	r.GET("/history", h.Chat.GetHistory)
	r.POST("/clear_chat", h.Chat.ClearChat)
	r.POST("/query_type", h.System.QueryType)

	// 文件
	r.POST("/upload", h.File.UploadFile)
	r.GET("/get_files", h.File.ListFiles)
	r.DELETE("/files/:name", h.File.DeleteFile)

	return r
}
