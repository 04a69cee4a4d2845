package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/techblog/backend/internal/domain/repository"
	handlers "github.com/techblog/backend/internal/interface/http"
	"github.com/techblog/backend/internal/interface/middleware"
	"github.com/techblog/backend/pkg/helpers"
)

// AdminModule wires the account-management surface behind the base gate plus
// the admin check.
type AdminModule struct {
	Handler *handlers.AdminHandler
	Repo    repository.UserRepository
	JWT     *helpers.JWTManager
}

func NewAdminModule(h *handlers.AdminHandler, repo repository.UserRepository, jwt *helpers.JWTManager) *AdminModule {
	return &AdminModule{Handler: h, Repo: repo, JWT: jwt}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(middleware.Auth(m.Repo, m.JWT), middleware.RequireAdmin())
	{
		admin.GET("/users", m.Handler.ListUsers)
		admin.GET("/users/search", m.Handler.SearchUsers)
		admin.PUT("/users/:userId/role", m.Handler.UpdateRole)
		admin.PUT("/users/:userId/toggle-status", m.Handler.ToggleStatus)
		admin.DELETE("/users/:userId", m.Handler.DeleteUser)
	}
}
