package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/shared/response"
	"storefront/pkg/jwt"
)

// Context keys set by Identity
const (
	ContextKeyShopper = "shopper"
	ContextKeyUserID  = "user_id"
	ContextKeyGuestID = "guest_id"
)

// Identity resolves who is calling: a bearer token identifies a user, the
// guest header identifies an anonymous shopper. An invalid bearer token is
// rejected with 401 so clients exercise their refresh path.
func Identity(tokens *jwt.Manager, guestHeader string, revoked func(token string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(c, "invalid authorization header format")
				c.Abort()
				return
			}

			claims, err := tokens.ValidateAccessToken(parts[1])
			if err != nil || (revoked != nil && revoked(parts[1])) {
				response.Unauthorized(c, "token expired or invalid")
				c.Abort()
				return
			}

			c.Set(ContextKeyUserID, claims.UserID)
			c.Set(ContextKeyShopper, "user:"+claims.UserID)
			c.Next()
			return
		}

		guestID := c.GetHeader(guestHeader)
		if guestID == "" {
			response.Unauthorized(c, "missing credentials")
			c.Abort()
			return
		}
		c.Set(ContextKeyGuestID, guestID)
		c.Set(ContextKeyShopper, "guest:"+guestID)
		c.Next()
	}
}

// RequireUser rejects guest callers
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextKeyUserID) == "" {
			response.Unauthorized(c, "Please sign in to continue")
			c.Abort()
			return
		}
		c.Next()
	}
}
