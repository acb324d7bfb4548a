package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-ID"
	headerAPIKey    = "X-API-Key"
	ctxRequestID    = "request_id"
)

// requestID reuses the caller's X-Request-ID or mints a UUID, and echoes it
// back on the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

// requestLog emits one structured line per request.
func requestLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", requestIDFrom(c)))
	}
}

// apiKeyAuth rejects requests whose X-API-Key does not match. An empty
// configured key disables the check.
func apiKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key != "" && c.GetHeader(headerAPIKey) != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "invalid or missing API key",
				"request_id": requestIDFrom(c),
			})
			return
		}
		c.Next()
	}
}
