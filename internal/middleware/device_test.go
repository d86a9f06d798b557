package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edustack/securexam-backend/internal/service"
)

func deadRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 10 * time.Millisecond,
		ReadTimeout: 10 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func runDeviceGuard(t *testing.T, claims *service.Claims) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/portal/attempts", nil)
	if claims != nil {
		c.Set(ContextKeyClaims, claims)
	}

	guard := SingleDeviceGuard(deadRedisClient(), zerolog.Nop())
	guard(c)
	if c.IsAborted() {
		return w.Code
	}
	return http.StatusOK
}

func TestSingleDeviceGuardSkipsWithoutClaims(t *testing.T) {
	if code := runDeviceGuard(t, nil); code != http.StatusOK {
		t.Fatalf("request without claims blocked: %d", code)
	}
}

func TestSingleDeviceGuardSkipsWithoutTokenID(t *testing.T) {
	claims := &service.Claims{
		TokenType: service.TokenTypeStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "student-1",
		},
	}
	if code := runDeviceGuard(t, claims); code != http.StatusOK {
		t.Fatalf("request without jti blocked: %d", code)
	}
}

func TestSingleDeviceGuardSkipsWhenRedisDown(t *testing.T) {
	claims := &service.Claims{
		TokenType: service.TokenTypeStudent,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "student-1",
			ID:      "token-abc",
		},
	}
	if code := runDeviceGuard(t, claims); code != http.StatusOK {
		t.Fatalf("request blocked while binding store is down: %d", code)
	}
}
