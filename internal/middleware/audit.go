package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Audit records who performed a seller action and how it ended.
func Audit(log *zap.Logger, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		var userID int64
		if u := CurrentUser(c); u != nil {
			userID = u.ID
		}
		log.Info("audit",
			zap.String("action", action),
			zap.Int64("user_id", userID),
			zap.String("target", c.Param("id")),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
