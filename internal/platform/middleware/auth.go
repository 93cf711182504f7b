package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// 認證相關的 context keys
const (
	UserIDKey          = "auth_user_id"
	UserDisplayNameKey = "auth_display_name"
)

// SessionClaims 會話 token 的聲明內容
// Token 由外部用戶服務簽發，這裡只負責驗證與解析
type SessionClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// AuthMiddleware 認證中間件
type AuthMiddleware struct {
	secret []byte
	issuer string
}

// NewAuthMiddleware 創建新的認證中間件
func NewAuthMiddleware(secret, issuer string) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// RequireAuth 要求認證的中間件（強制）
// Token 從 Authorization header 讀取；SSE 連接因為 EventSource
// 無法設置 header，允許改用 token query 參數
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(401, gin.H{"error": "未提供認證 token", "success": false})
			c.Abort()
			return
		}

		claims, err := m.parseToken(tokenString)
		if err != nil {
			c.JSON(401, gin.H{"error": "認證失敗", "success": false})
			c.Abort()
			return
		}

		// 將用戶信息存入 context
		c.Set(UserIDKey, claims.UserID)
		c.Set(UserDisplayNameKey, claims.DisplayName)

		c.Next()
	}
}

// parseToken 驗證並解析 token
func (m *AuthMiddleware) parseToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token missing user_id claim")
	}

	return claims, nil
}

// extractToken 從請求中取出 token
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	// EventSource 無法設置 header，退而使用 query 參數
	return c.Query("token")
}

// CurrentUser 從 gin.Context 獲取已認證的用戶身份
func CurrentUser(c *gin.Context) (userID, displayName string, ok bool) {
	id, exists := c.Get(UserIDKey)
	if !exists {
		return "", "", false
	}
	userID, ok = id.(string)
	if !ok || userID == "" {
		return "", "", false
	}

	if name, exists := c.Get(UserDisplayNameKey); exists {
		displayName, _ = name.(string)
	}

	return userID, displayName, true
}
