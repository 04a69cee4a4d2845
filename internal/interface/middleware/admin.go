package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techblog/backend/internal/domain/entity"
	"github.com/techblog/backend/pkg/response"
)

// RequireAdmin passes only active accounts holding the admin or superadmin
// role. It composes after Auth and never substitutes for it: without a
// resolved account the request is still unauthenticated.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			resp := response.Error[any](c, http.StatusUnauthorized, "User not authenticated", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		if !u.IsActive {
			resp := response.Error[any](c, http.StatusForbidden, "Account is deactivated", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		if !u.Role.IsPrivileged() {
			resp := response.Error[any](c, http.StatusForbidden, "Access denied. Admin privileges required.", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Next()
	}
}

// RequireSuperAdmin passes only accounts whose role is exactly superadmin.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			resp := response.Error[any](c, http.StatusUnauthorized, "User not authenticated", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		if u.Role != entity.RoleSuperAdmin {
			resp := response.Error[any](c, http.StatusForbidden, "Access denied. Super admin privileges required.", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Next()
	}
}
