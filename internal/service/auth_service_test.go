package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/edustack/securexam-backend/internal/config"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func studentClaims(exp time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "student-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		TokenType:   TokenTypeStudent,
		DisplayName: "A. Student",
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: testSecret, JWTLeeway: 30 * time.Second})

	tok := signToken(t, testSecret, studentClaims(time.Now().Add(time.Hour)))
	claims, err := svc.ValidateToken(tok)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID() != "student-1" {
		t.Fatalf("user id = %s", claims.UserID())
	}
	if claims.TokenType != TokenTypeStudent {
		t.Fatalf("token type = %s", claims.TokenType)
	}
}

func TestValidateTokenRejections(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: testSecret})

	noSubject := studentClaims(time.Now().Add(time.Hour))
	noSubject.Subject = ""
	noType := studentClaims(time.Now().Add(time.Hour))
	noType.TokenType = ""
	badType := studentClaims(time.Now().Add(time.Hour))
	badType.TokenType = "superuser"

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, "other-secret", studentClaims(time.Now().Add(time.Hour)))},
		{"expired", signToken(t, testSecret, studentClaims(time.Now().Add(-time.Hour)))},
		{"missing subject", signToken(t, testSecret, noSubject)},
		{"missing token type", signToken(t, testSecret, noType)},
		{"unknown token type", signToken(t, testSecret, badType)},
		{"garbage", "not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ValidateToken(tt.token); err == nil {
				t.Fatal("token accepted, want error")
			}
		})
	}
}

func TestValidateTokenLeeway(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: testSecret, JWTLeeway: time.Minute})

	// Expired ten seconds ago, still inside the one-minute leeway.
	tok := signToken(t, testSecret, studentClaims(time.Now().Add(-10*time.Second)))
	if _, err := svc.ValidateToken(tok); err != nil {
		t.Fatalf("token inside leeway rejected: %v", err)
	}
}

func TestValidateTokenRejectsUnexpectedAlg(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: testSecret})

	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, studentClaims(time.Now().Add(time.Hour))).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := svc.ValidateToken(tok); err == nil {
		t.Fatal("alg=none token accepted")
	}
}
