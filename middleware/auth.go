package middleware

import (
	"context"
	"strings"

	"bookstore_go/config"
	"bookstore_go/utils"

	"github.com/gin-gonic/gin"
)

// 上下文键与会话cookie名
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextToken    = "session_token"

	SessionCookie = "session"
)

// TokenBlacklist 已注销令牌查询
type TokenBlacklist interface {
	IsRevoked(ctx context.Context, token string) bool
}

// ExtractToken 从 Authorization 头或会话cookie中读取令牌
func ExtractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimSpace(header[len("Bearer "):])
		}
		return strings.TrimSpace(header)
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// AuthMiddleware 要求有效会话，并把用户信息写入上下文
func AuthMiddleware(jwtService *config.JWTService, blacklist TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			utils.Unauthorized(c, "Login required")
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			utils.Unauthorized(c, "Invalid or expired session")
			c.Abort()
			return
		}

		if blacklist != nil && blacklist.IsRevoked(c.Request.Context(), token) {
			utils.Unauthorized(c, "Session has been revoked")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextToken, token)
		c.Next()
	}
}

// CurrentUserID 当前登录用户ID
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
