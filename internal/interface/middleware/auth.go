package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techblog/backend/internal/domain/entity"
	"github.com/techblog/backend/internal/domain/repository"
	"github.com/techblog/backend/pkg/helpers"
	"github.com/techblog/backend/pkg/response"
)

const ctxUserKey = "currentUser"

// CurrentUser returns the account the base gate resolved for this request.
// The bool is false on routes where the gate never ran.
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*entity.User)
	return u, ok
}

// Auth is the base authorization check: it extracts and verifies the session
// token cookie, resolves the embedded id to an account, and attaches the
// account to the request context. Missing/malformed/expired tokens are 401;
// a valid token whose account no longer exists is 404.
func Auth(repo repository.UserRepository, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.TokenCookie)
		if err != nil || token == "" {
			resp := response.Error[any](c, http.StatusUnauthorized, "User not authenticated", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		claims, err := jwt.Parse(token)
		if err != nil {
			resp := response.Error[any](c, http.StatusUnauthorized, "Invalid or expired token", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		u, err := repo.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			resp := response.Error[any](c, http.StatusNotFound, "User not found", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Set(ctxUserKey, u)
		c.Next()
	}
}
