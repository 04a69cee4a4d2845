package router

import (
	userapp "github.com/techblog/backend/internal/application"
	"github.com/techblog/backend/internal/container"
	pginfra "github.com/techblog/backend/internal/infrastructure/postgres"
	handlers "github.com/techblog/backend/internal/interface/http"
	"github.com/techblog/backend/internal/router/modules"
)

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	repo := pginfra.NewUserRepository(container.GetPGPool())
	content := pginfra.NewContentRepository(container.GetPGPool())

	// A nil publisher must stay a nil interface so mail dispatch is skipped,
	// not attempted and panicked on.
	var mail userapp.MailEnqueuer
	if pub := container.GetRabbitPub(); pub != nil {
		mail = pub
	}

	svc := userapp.NewService(
		repo,
		container.GetJWT(),
		container.GetRedis(),
		container.GetLogger(),
		container.GetES(),
		cfg.ESUsersIndex,
		mail,
		cfg.AppName,
		cfg.MailSendEnabled,
		cfg.ResetCodeTTL,
	)
	adminSvc := userapp.NewAdminService(repo, content, container.GetLogger(), container.GetES(), cfg.ESUsersIndex)

	userHandler := handlers.NewUserHandler(svc, container.GetLogger(), cfg.CookieDomain, cfg.IsProduction())
	adminHandler := handlers.NewAdminHandler(adminSvc, container.GetLogger(), cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	r.Add(modules.NewUserModule(userHandler, adminHandler, repo, container.GetJWT()))
	r.Add(modules.NewAdminModule(adminHandler, repo, container.GetJWT()))
}
