package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwtpkg "github.com/MLH-TTU/MLH-website-sub002/pkg/jwt"
	"github.com/MLH-TTU/MLH-website-sub002/pkg/response"
)

// AdminAuth restricts event and code management to the configured officer
// accounts. Must be used after JWTAuth.
func AdminAuth(adminUserIDs []string) gin.HandlerFunc {
	allowed := make(map[uuid.UUID]struct{}, len(adminUserIDs))
	for _, raw := range adminUserIDs {
		if id, err := uuid.Parse(raw); err == nil {
			allowed[id] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		claims, ok := c.Value(ContextKeyUserClaims).(*jwtpkg.Claims)
		if !ok {
			response.Unauthorized(c, "missing authentication")
			c.Abort()
			return
		}

		id, err := uuid.Parse(claims.Subject)
		if err != nil {
			response.Unauthorized(c, "invalid user id")
			c.Abort()
			return
		}
		if _, isAdmin := allowed[id]; !isAdmin {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}

		c.Next()
	}
}
