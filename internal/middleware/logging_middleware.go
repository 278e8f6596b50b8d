package middleware

import (
	"time"

	"craftlink-chat/internal/services"
	"craftlink-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware writes one line per request. Health and metrics
// endpoints are skipped so checks and scrapes do not flood the log.
func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		if path == "/health" || path == "/metrics" || path == "/ping" {
			return
		}

		latency := time.Since(start)
		status := c.Writer.Status()

		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		if log == nil {
			return
		}

		if userID, ok := services.UserIDFromContext(c.Request.Context()); ok {
			log.Infof("%s %s %d %s user=%s", method, path, status, latency.String(), userID)
			return
		}
		log.Infof("%s %s %d %s", method, path, status, latency.String())
	}
}
