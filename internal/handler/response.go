package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ========== 响应格式 ==========

// ok 成功响应，附加字段由调用方给出
func ok(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// fail 业务失败响应
// 与前端约定：业务失败也返回 200，由 success 字段区分
func fail(c *gin.Context, fields gin.H) {
	body := gin.H{"success": false}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
