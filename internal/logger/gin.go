package logger

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware writes one line per request.
func GinMiddleware() gin.HandlerFunc {
	l := WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := l.Info()
		switch {
		case status >= 500:
			event = l.Error()
		case status >= 400:
			event = l.Warn()
		}
		if uid, ok := c.Get("userID"); ok {
			if s, ok := uid.(string); ok {
				event = event.Str("user_id", s)
			}
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
