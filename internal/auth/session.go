// Package auth issues and checks session tokens.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tumortrace/classification-service/internal/models"
)

const (
	CookieName    = "token"
	contextUserID = "userId"
)

type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

func (m *TokenManager) Issue(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse validates the token and returns the user id it was issued for.
func (m *TokenManager) Parse(tokenString string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", fmt.Errorf("%w: token expired, please login again", models.ErrUnauthorized)
	}
	if err != nil {
		return "", fmt.Errorf("%w: invalid token", models.ErrUnauthorized)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: token has no user", models.ErrUnauthorized)
	}
	return claims.UserID, nil
}

// tokenFromRequest prefers the Authorization header and falls back to the
// session cookie.
func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}

// RequireSession rejects requests without a valid session token.
func (m *TokenManager) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized access - No token provided"})
			return
		}
		userID, err := m.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
			return
		}
		c.Set(contextUserID, userID)
		c.Next()
	}
}

// OptionalSession attaches the session user when a token is sent. A token
// that is present but invalid is still rejected.
func (m *TokenManager) OptionalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.Next()
			return
		}
		userID, err := m.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
			return
		}
		c.Set(contextUserID, userID)
		c.Next()
	}
}

func SessionUserID(c *gin.Context) (string, bool) {
	id := c.GetString(contextUserID)
	return id, id != ""
}

// SetSessionCookie stores the token in an HttpOnly cookie.
func (m *TokenManager) SetSessionCookie(c *gin.Context, token string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(m.ttl.Seconds()), "/", "", secure, true)
}

func ClearSessionCookie(c *gin.Context) {
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
}
