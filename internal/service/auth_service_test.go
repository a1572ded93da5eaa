package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/quizpath/session-gateway/internal/config"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: testSecret})

	t.Run("valid", func(t *testing.T) {
		tok := signToken(t, testSecret, "user-1", time.Now().Add(time.Hour))
		claims, err := svc.ValidateToken(tok)
		if err != nil {
			t.Fatalf("ValidateToken: %v", err)
		}
		if claims.UserID() != "user-1" {
			t.Errorf("UserID = %q, want user-1", claims.UserID())
		}
	})

	t.Run("expired", func(t *testing.T) {
		tok := signToken(t, testSecret, "user-1", time.Now().Add(-time.Hour))
		_, err := svc.ValidateToken(tok)
		if !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("err = %v, want ErrTokenExpired", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok := signToken(t, "other-secret", "user-1", time.Now().Add(time.Hour))
		_, err := svc.ValidateToken(tok)
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		tok := signToken(t, testSecret, "", time.Now().Add(time.Hour))
		_, err := svc.ValidateToken(tok)
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.jwt")
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v, want ErrInvalidToken", err)
		}
	})
}
