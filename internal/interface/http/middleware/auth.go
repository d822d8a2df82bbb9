package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xiebiao/bookorder/pkg/errors"
	"github.com/xiebiao/bookorder/pkg/jwt"
	"github.com/xiebiao/bookorder/pkg/response"
)

const (
	ctxKeyUserID   = "user_id"
	ctxKeyEmail    = "email"
	ctxKeyNickname = "nickname"
)

// AuthMiddleware JWT认证中间件
// Token由账号服务签发,这里只校验签名和有效期,再把买家信息放进Context
type AuthMiddleware struct {
	jwtManager *jwt.Manager
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *jwt.Manager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// RequireAuth 要求登录
// 使用方式：
//
//	authorized := r.Group("/api/v1")
//	authorized.Use(authMiddleware.RequireAuth())
//	authorized.POST("/orders", handler.PlaceOrder)
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 格式：Authorization: Bearer <token>
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.ErrorWithCode(c, apperrors.ErrCodeInvalidToken, "Token格式错误")
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ParseToken(parts[1])
		if err != nil {
			response.Error(c, err) // ErrTokenExpired、ErrInvalidToken
			c.Abort()
			return
		}

		c.Set(ctxKeyUserID, claims.UserID)
		c.Set(ctxKeyEmail, claims.Email)
		c.Set(ctxKeyNickname, claims.Nickname)
		c.Next()
	}
}

// GetUserID 从Context获取当前登录用户ID,未登录返回0
func GetUserID(c *gin.Context) uint {
	if userID, exists := c.Get(ctxKeyUserID); exists {
		if uid, ok := userID.(uint); ok {
			return uid
		}
	}
	return 0
}

// GetEmail 从Context获取当前登录用户邮箱
func GetEmail(c *gin.Context) string {
	return c.GetString(ctxKeyEmail)
}

// MustGetUserID 从Context获取用户ID（如果不存在则panic）
// 说明：用于已经通过RequireAuth中间件的Handler
func MustGetUserID(c *gin.Context) uint {
	userID := GetUserID(c)
	if userID == 0 {
		panic("user_id not found in context")
	}
	return userID
}
