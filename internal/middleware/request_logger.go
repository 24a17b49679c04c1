package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"contact_form/pkg/logger"
)

// RequestLogger пишет строку журнала на каждый запрос. Тело и query не
// логируются: в них могут быть данные формы.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		args := []any{
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if sessionID, ok := c.Get(SessionIDKey); ok {
			args = append(args, "session_id", sessionID)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("HTTP request", args...)
		case status >= 400:
			log.Warn("HTTP request", args...)
		default:
			log.Info("HTTP request", args...)
		}
	}
}
