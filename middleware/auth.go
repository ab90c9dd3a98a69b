package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// KeyAuth validates the shared-secret key query parameter. A bad key is
// answered with the original bot's terse rejection and no detail.
func KeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.Query("key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			c.JSON(http.StatusOK, gin.H{"result": "nope"})
			c.Abort()
			return
		}
		c.Next()
	}
}
