package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/techblog/backend/internal/application"
	"github.com/techblog/backend/internal/domain/repository"
	"github.com/techblog/backend/pkg/response"
	"github.com/techblog/backend/pkg/validation"
)

type AdminHandler struct {
	Svc    *userapp.AdminService
	Logger *logrus.Logger

	// Bootstrap credentials for the first superadmin.
	SeedEmail    string
	SeedPassword string
}

func NewAdminHandler(svc *userapp.AdminService, logger *logrus.Logger, seedEmail, seedPassword string) *AdminHandler {
	return &AdminHandler{Svc: svc, Logger: logger, SeedEmail: seedEmail, SeedPassword: seedPassword}
}

func intQuery(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// ListUsers GET /api/admin/users?page=&limit=&search=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	f := repository.ListFilter{
		Search: c.Query("search"),
		Page:   intQuery(c, "page", 1),
		Limit:  intQuery(c, "limit", 10),
	}
	users, pagination, err := h.Svc.ListUsers(c.Request.Context(), f)
	if err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, users, "users", pagination)
}

// SearchUsers GET /api/admin/users/search?q=&size=
func (h *AdminHandler) SearchUsers(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Fail(c, http.StatusBadRequest, "q is required", nil)
		return
	}
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, intQuery(c, "size", 10))
	if err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", nil)
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required,role"`
}

// UpdateRole PUT /api/admin/users/:userId/role
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid role", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateRole(c.Request.Context(), c.Param("userId"), req.Role)
	if err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, userapp.ToPublic(u), "User role updated successfully", nil)
}

// ToggleStatus PUT /api/admin/users/:userId/toggle-status
func (h *AdminHandler) ToggleStatus(c *gin.Context) {
	u, err := h.Svc.ToggleActive(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	msg := "User deactivated successfully"
	if u.IsActive {
		msg = "User activated successfully"
	}
	response.Success(c, http.StatusOK, userapp.ToPublic(u), msg, nil)
}

// DeleteUser DELETE /api/admin/users/:userId
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.Svc.DeleteUser(c.Request.Context(), c.Param("userId")); err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "User deleted successfully", nil)
}

// InitializeAdmin POST /api/initialize-admin
// Creates the first superadmin; refused once any privileged account exists.
func (h *AdminHandler) InitializeAdmin(c *gin.Context) {
	u, err := h.Svc.InitializeAdmin(c.Request.Context(), h.SeedEmail, h.SeedPassword)
	if err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, userapp.ToPublic(u), "Super admin created successfully", nil)
}

type promoteAdminRequest struct {
	Email string `json:"email"`
}

// PromoteToAdmin POST /api/promote-admin (development helper)
func (h *AdminHandler) PromoteToAdmin(c *gin.Context) {
	var req promoteAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.PromoteToAdmin(c.Request.Context(), req.Email)
	if err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, userapp.ToPublic(u), "User promoted to admin successfully", nil)
}
