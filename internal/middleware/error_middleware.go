package middleware

import (
	"net/http"

	"craftlink-chat/internal/transport/httpdto"
	"craftlink-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler is the last-resort net for errors attached to the gin context
// that no handler translated itself. Handlers normally map service errors to
// status codes directly; anything that reaches here is reported as internal.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Errorf("unhandled request error on %s %s: %s",
				c.Request.Method, c.Request.URL.Path, err.Error())
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		c.JSON(status, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
