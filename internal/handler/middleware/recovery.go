package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MLH-TTU/MLH-website-sub002/pkg/response"
)

func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.FullPath()),
					zap.Stack("stack"),
				)
				response.Reason(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
