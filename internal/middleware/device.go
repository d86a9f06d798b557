package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edustack/securexam-backend/internal/config"
	"github.com/edustack/securexam-backend/internal/response"
)

// deviceBindingTTL bounds how long a device claim outlives its last request,
// so a crashed browser does not lock the student out forever.
const deviceBindingTTL = 30 * time.Minute

// SingleDeviceGuard pins each student to one device for the duration of
// their exam work. The first request binds the token's jti to the student;
// requests carrying a different jti are rejected until the binding expires.
// Tokens without a jti cannot be told apart and skip the check. Redis being
// down also skips it: availability of the exam beats the device rule.
func SingleDeviceGuard(rdb *redis.Client, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || claims.ID == "" {
			c.Next()
			return
		}

		key := config.CacheKey.StudentDeviceKey(claims.UserID())
		ctx := c.Request.Context()

		ok, err := rdb.SetNX(ctx, key, claims.ID, deviceBindingTTL).Result()
		if err != nil {
			log.Warn().Err(err).Str("student_id", claims.UserID()).Msg("device binding unavailable")
			c.Next()
			return
		}
		if ok {
			c.Next()
			return
		}

		bound, err := rdb.Get(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if bound != claims.ID {
			response.AbortFail(c, http.StatusConflict, response.ErrDeviceConflict)
			return
		}

		// Same device: slide the binding forward.
		rdb.Expire(ctx, key, deviceBindingTTL)
		c.Next()
	}
}
