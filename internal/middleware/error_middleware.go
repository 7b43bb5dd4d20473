package middleware

import (
	"net/http"

	"sentinal-social/internal/transport/httpdto"
	"sentinal-social/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error a handler attached with c.Error, unless
// the handler already wrote a response.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, body := httpdto.ErrorResponseFor(err)
		if status >= http.StatusInternalServerError {
			l.Ctx(c.Request.Context()).Error("request failed", zap.Error(err))
		} else {
			l.Ctx(c.Request.Context()).Debug("request rejected", zap.Int("status", status), zap.Error(err))
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(status, body)
	}
}
