package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionContextKey 会话 ID 在 gin 上下文中的键
const SessionContextKey = "session_id"

// cookieMaxAge 会话 Cookie 的有效期
const cookieMaxAge = 24 * time.Hour

// sessionClaims 会话 Cookie 的 JWT 载荷
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionMiddleware 会话中间件
// 从签名 Cookie 中恢复会话 ID，缺失或签名无效时签发新会话
func SessionMiddleware(cookieName, secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		sessionID := ""

		if raw, err := c.Cookie(cookieName); err == nil && raw != "" {
			if sid, err := parseSessionToken(raw, key); err == nil {
				sessionID = sid
			} else {
				log.Printf("Warning: rejecting session cookie: %v", err)
			}
		}

		if sessionID == "" {
			sessionID = uuid.New().String()
			token, err := signSessionToken(sessionID, key)
			if err != nil {
				log.Printf("Warning: failed to sign session token: %v", err)
			} else {
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(cookieName, token, int(cookieMaxAge.Seconds()), "/", "", false, true)
			}
		}

		c.Set(SessionContextKey, sessionID)
		c.Next()
	}
}

// GetSessionID 从上下文获取当前会话 ID
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionContextKey)
}

func signSessionToken(sessionID string, key []byte) (string, error) {
	now := time.Now()
	claims := &sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cookieMaxAge)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

func parseSessionToken(raw string, key []byte) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.SessionID == "" {
		return "", fmt.Errorf("invalid session token")
	}
	return claims.SessionID, nil
}
