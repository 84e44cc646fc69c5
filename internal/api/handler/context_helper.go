package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/HUI135/gc-endoscopy-room-sub001/pkg/response"
)

// mustGetString 从 Gin 上下文中安全提取 JWT 中间件注入的字符串字段。
// 缺失时写入 401 响应并返回 false，调用方应直接 return。
func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetUserID 提取 user_id
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, "user_id")
}

// MustGetName 提取 name（排班表中的人员名）
func MustGetName(c *gin.Context) (string, bool) {
	return mustGetString(c, "name")
}

// MustGetRole 提取 role
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, "role")
}
