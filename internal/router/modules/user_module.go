package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/techblog/backend/internal/domain/repository"
	handlers "github.com/techblog/backend/internal/interface/http"
	"github.com/techblog/backend/internal/interface/middleware"
	"github.com/techblog/backend/pkg/helpers"
)

// UserModule wires the public identity surface and the authenticated
// self-service routes.
// Public: register, login, logout, all-users, the password recovery protocol,
// and the first-admin bootstrap helpers.
// Protected (base gate only): profile read and update.
type UserModule struct {
	Handler *handlers.UserHandler
	Admin   *handlers.AdminHandler
	Repo    repository.UserRepository
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, ah *handlers.AdminHandler, repo repository.UserRepository, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, Admin: ah, Repo: repo, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rg.POST("/register", m.Handler.Register)
	rg.POST("/login", m.Handler.Login)
	rg.GET("/logout", m.Handler.Logout)
	rg.GET("/all-users", m.Handler.AllUsers)

	rg.POST("/password/request-reset", m.Handler.RequestPasswordReset)
	rg.POST("/password/verify-code", m.Handler.VerifyResetCode)
	rg.POST("/password/reset", m.Handler.ResetPassword)

	// First-admin bootstrap; guarded by an existence check, not by a gate.
	rg.POST("/initialize-admin", m.Admin.InitializeAdmin)
	rg.POST("/promote-admin", m.Admin.PromoteToAdmin)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Repo, m.JWT))
	{
		auth.GET("/profile", m.Handler.GetProfile)
		auth.PUT("/profile/update", m.Handler.UpdateProfile)
	}
}
