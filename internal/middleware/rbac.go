package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/brgy-docs-api/internal/models"
	appErrors "github.com/noah-isme/brgy-docs-api/pkg/errors"
	"github.com/noah-isme/brgy-docs-api/pkg/response"
)

// RequireRoles restricts a route to the given roles. SUPERADMIN passes
// any gate that admits ADMIN, mirroring the engine's role checks. The
// fine-grained ownership and tenant rules live in the services; this only
// trims obviously wrong callers at the edge.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		role := claims.Role
		if role == models.RoleSuperAdmin {
			if _, ok := allowed[models.RoleSuperAdmin]; !ok {
				role = models.RoleAdmin
			}
		}
		if _, ok := allowed[role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff admits any barangay personnel role.
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleCaptain, models.RoleSecretary, models.RoleTreasurer)
}
