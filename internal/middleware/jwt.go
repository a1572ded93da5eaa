package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quizpath/session-gateway/internal/response"
	"github.com/quizpath/session-gateway/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
	// ContextKeyToken is the Gin context key for the raw bearer token. The
	// gateway forwards it unchanged on upstream calls.
	ContextKeyToken = "bearer_token"
)

// RequireUserJWT validates a bearer JWT from the Authorization header.
func RequireUserJWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, tokenErrCode(err))
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyToken, tokenStr)
		c.Next()
	}
}

// RequireUserWSAuth validates a JWT from the query param ?token=...
// Used for WebSocket upgrade requests, which cannot set headers.
func RequireUserWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, tokenErrCode(err))
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyToken, tokenStr)
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetToken retrieves the raw bearer token from the Gin context.
func GetToken(c *gin.Context) string {
	return c.GetString(ContextKeyToken)
}

func tokenErrCode(err error) response.ErrCode {
	if errors.Is(err, service.ErrTokenExpired) {
		return response.ErrTokenExpired
	}
	return response.ErrTokenInvalid
}

func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1], nil
		}
	}

	if tok := c.Query("token"); tok != "" {
		return tok, nil
	}

	return "", fmt.Errorf("authorization header or token query required")
}
