package middleware

import (
	"net/http"

	"insureflow/utils"

	"github.com/gin-gonic/gin"
)

// RecoveryMiddleware is the rendering error boundary: any panic while
// serving a step turns into a generic recoverable response instead of a
// dropped connection, so the client can offer a full reload.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		utils.LogPanic(recovered, "HTTP Request")

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Something went wrong. Please reload the page and try again.",
		})
		c.Abort()
	})
}
