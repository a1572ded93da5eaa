package service

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/quizpath/session-gateway/internal/config"
)

// Token validation errors. Expiry is split out so clients can distinguish
// "log in again" from a bad token.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the JWT claims the gateway cares about. Tokens are issued by the
// external auth service; the gateway only verifies them and reads the subject.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the token subject, the gateway's user identity.
func (c *Claims) UserID() string {
	return c.Subject
}

// AuthService validates bearer tokens issued by the external auth service.
// Token issuance, refresh and revocation live outside this gateway.
type AuthService struct {
	cfg *config.Config
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg}
}

// ValidateToken parses and verifies an HS256 JWT against the shared secret.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
