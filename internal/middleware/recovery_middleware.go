// internal/middleware/recovery_middleware.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"device-terminal/internal/utils"
)

// RecoveryMiddleware turns a handler panic into a 500 response. The device
// session is owned by the controller and survives the failed request.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := c.GetString(utils.RequestIDKey)
		utils.LoggerWithRequestID(logger, requestID).Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Stack("stacktrace"),
		)

		// nothing can be written once the connection was upgraded or a
		// response has started
		if c.Writer.Written() || c.IsWebsocket() {
			c.Abort()
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error", nil)
	})
}
