// README: Request logging middleware writing http_request actions.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"partner/internal/logger"
)

func Logging(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http_request", map[string]any{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"worker_id":   CallerUID(c),
		})
	}
}
