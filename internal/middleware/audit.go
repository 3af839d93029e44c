package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qongirat/appeals-api/internal/models"
)

// Audit logs state-changing authenticated requests after completion.
func Audit(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
		}
		if value, exists := c.Get(ContextUserKey); exists {
			if claims, ok := value.(*models.JWTClaims); ok {
				fields = append(fields,
					zap.Int64("user_id", claims.UserID),
					zap.String("role", string(claims.Role)))
			}
		}

		if c.Writer.Status() >= 400 {
			log.Warn("audit", fields...)
			return
		}
		log.Info("audit", fields...)
	}
}
