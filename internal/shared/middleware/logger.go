package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"storefront/pkg/logger"
)

// Logger logs every request at debug level
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.DebugFields("api request", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"shopper":    c.GetString(ContextKeyShopper),
		})
	}
}
