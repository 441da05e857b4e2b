package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rmitchellscott/kindling/internal/logging"
)

// Logger logs one line per request through the process logger.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", time.Since(start),
			"size", c.Writer.Size(),
			"ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		}
		if query != "" {
			args = append(args, "query", query)
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case path == "/healthz" || path == "/metrics":
			level = slog.LevelDebug
		}
		logging.WithComponent(logging.ComponentHTTP).Log(c.Request.Context(), level, "request", args...)
	}
}
