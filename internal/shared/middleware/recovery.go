package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"storefront/internal/shared/response"
	"storefront/pkg/logger"
)

func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", fmt.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, r))
				response.InternalServerError(c, "Internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
