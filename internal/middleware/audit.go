package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Audit records successful operator mutations. Reads are not recorded.
func Audit(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Request.Method == http.MethodGet || c.Writer.Status() >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
		}
		if sess := SessionFromContext(c); sess != nil {
			fields = append(fields, zap.String("operator_id", sess.UserID), zap.String("role", string(sess.Role)))
		}
		if screen := c.Param(ScreenParam); screen != "" {
			fields = append(fields, zap.String("screen", screen))
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("record_id", id))
		}
		logger.Info("operator_action", fields...)
	}
}
