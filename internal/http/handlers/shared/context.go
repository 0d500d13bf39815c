package shared

import (
	"strings"

	"github.com/redvelvet-shop/internal/http/response"

	"github.com/gin-gonic/gin"
)

const (
	// ContextUserIDKey 认证中间件写入的用户 ID
	ContextUserIDKey = "user_id"
	// ContextUserEmailKey 认证中间件写入的邮箱
	ContextUserEmailKey = "user_email"
)

// OptionalUserID 读取已认证用户 ID，未登录返回空串。
func OptionalUserID(c *gin.Context) string {
	value, exists := c.Get(ContextUserIDKey)
	if !exists {
		return ""
	}
	id, _ := value.(string)
	return strings.TrimSpace(id)
}

// RequireUserID 读取已认证用户 ID，未登录时写入 401 响应。
func RequireUserID(c *gin.Context) (string, bool) {
	id := OptionalUserID(c)
	if id == "" {
		RespondError(c, response.CodeUnauthorized, "não autenticado", nil)
		return "", false
	}
	return id, true
}

// UserEmail 读取令牌中的邮箱。
func UserEmail(c *gin.Context) string {
	value, _ := c.Get(ContextUserEmailKey)
	email, _ := value.(string)
	return strings.TrimSpace(email)
}
