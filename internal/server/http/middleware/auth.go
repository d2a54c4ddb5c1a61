package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkgAuth "github.com/polkiloo/storefront/internal/pkg/auth"
)

const (
	// UserIDContextKey is a gin context key for authenticated user identifier.
	UserIDContextKey = "userID"
	authCookieName   = "storefront_token"
	tokenQueryParam  = "token"
)

// TokenParser resolves session tokens.
type TokenParser interface {
	ParseToken(token string) (int64, error)
}

// AdminChecker decides which authenticated users hold operator rights.
type AdminChecker interface {
	IsAdmin(userID int64) bool
}

// AuthRequired ensures user is authenticated before accessing handler.
func AuthRequired(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !authenticate(c, parser, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the user when a token is present. A present but
// invalid token is still rejected.
func OptionalAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" && !authenticate(c, parser, token) {
			return
		}
		c.Next()
	}
}

// AdminRequired runs after AuthRequired and lets only admins through.
func AdminRequired(checker AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := c.Get(UserIDContextKey)
		userID, _ := val.(int64)
		if !ok || userID == 0 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if !checker.IsAdmin(userID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "admin access required"})
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, parser TokenParser, token string) bool {
	userID, err := parser.ParseToken(token)
	if err != nil {
		if errors.Is(err, pkgAuth.ErrInvalidToken) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return false
		}
		c.AbortWithStatus(http.StatusInternalServerError)
		return false
	}
	c.Set(UserIDContextKey, userID)
	return true
}

// extractToken looks at the Authorization header, then the cookie, then the
// query string. Browsers cannot set headers on websocket upgrades.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}

	if cookie, err := c.Cookie(authCookieName); err == nil && cookie != "" {
		return cookie
	}
	return c.Query(tokenQueryParam)
}
