package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/camp-school-api/internal/models"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
	"github.com/noah-isme/camp-school-api/pkg/response"
)

// RequireRoles rejects callers whose token role is not listed. Must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "forbidden access"))
			c.Abort()
			return
		}
		c.Next()
	}
}
