package middleware

import (
	"crypto/subtle"
	"net/http"

	"adreward_miniapp/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AdminAuth guards the administrative surface with a shared credential. It is
// deliberately separate from the Telegram identity check: an operator is not
// a mini-app user.
type AdminAuth struct {
	token string
}

func NewAdminAuth(token string) *AdminAuth {
	return &AdminAuth{token: token}
}

func (a *AdminAuth) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		if a.token == "" {
			log.Error("admin token is not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		supplied := c.GetHeader("X-Admin-Token")
		if supplied == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token is required"})
			return
		}

		if subtle.ConstantTimeCompare([]byte(supplied), []byte(a.token)) != 1 {
			log.Info("rejected admin request with invalid token")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Next()
	}
}
