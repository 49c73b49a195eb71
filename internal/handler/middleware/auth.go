package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	jwtpkg "github.com/MLH-TTU/MLH-website-sub002/pkg/jwt"
	"github.com/MLH-TTU/MLH-website-sub002/pkg/response"
)

const ContextKeyUserClaims = "user_claims"

var (
	errMissingHeader = errors.New("missing authorization header")
	errBadFormat     = errors.New("invalid authorization format")
	errBadToken      = errors.New("invalid or expired token")
	errBadTokenType  = errors.New("invalid token type")
)

// JWTAuth rejects requests without a valid access token and stores its
// claims under ContextKeyUserClaims.
func JWTAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, jwtManager)
		if err != nil {
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		}
		c.Set(ContextKeyUserClaims, claims)
		c.Next()
	}
}

// OptionalJWTAuth attaches claims when a valid bearer token is present and
// lets anonymous requests through. A malformed or expired token is still
// rejected so callers never silently lose their identity.
func OptionalJWTAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := bearerClaims(c, jwtManager)
		switch {
		case errors.Is(err, errMissingHeader):
		case err != nil:
			response.Unauthorized(c, err.Error())
			c.Abort()
			return
		default:
			c.Set(ContextKeyUserClaims, claims)
		}
		c.Next()
	}
}

func bearerClaims(c *gin.Context, jwtManager *jwtpkg.Manager) (*jwtpkg.Claims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errMissingHeader
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errBadFormat
	}

	claims, err := jwtManager.Validate(parts[1])
	if err != nil {
		return nil, errBadToken
	}
	if claims.TokenType != jwtpkg.TokenTypeAccess {
		return nil, errBadTokenType
	}
	return claims, nil
}
