package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/techblog/backend/internal/application"
	"github.com/techblog/backend/internal/interface/middleware"
	"github.com/techblog/backend/pkg/helpers"
	"github.com/techblog/backend/pkg/response"
	"github.com/techblog/backend/pkg/validation"
)

type UserHandler struct {
	Svc     *userapp.Service
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger, cookieDomain string, production bool) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, production)}
}

// writeServiceError maps the application error taxonomy onto HTTP statuses.
// Anything unrecognized is logged and surfaced as a generic 500.
func writeServiceError(c *gin.Context, logger *logrus.Logger, err error) {
	var verr *userapp.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Fail(c, http.StatusBadRequest, verr.Message, nil)
	case errors.Is(err, userapp.ErrEmailExists):
		response.Fail(c, http.StatusBadRequest, "Email already exists", nil)
	case errors.Is(err, userapp.ErrUnknownEmail):
		response.Fail(c, http.StatusBadRequest, "Incorrect email or password", nil)
	case errors.Is(err, userapp.ErrInvalidCredentials):
		response.Fail(c, http.StatusBadRequest, "Invalid Credentials", nil)
	case errors.Is(err, userapp.ErrInvalidOrExpiredCode):
		response.Fail(c, http.StatusBadRequest, "Invalid or expired code", nil)
	case errors.Is(err, userapp.ErrUserNotFound):
		response.Fail(c, http.StatusNotFound, "User not found", nil)
	case errors.Is(err, userapp.ErrSuperAdminImmutable):
		response.Fail(c, http.StatusForbidden, "Cannot delete super admin", nil)
	case errors.Is(err, userapp.ErrAdminExists):
		response.Fail(c, http.StatusBadRequest, "Admin already exists. Use promote-admin endpoint instead.", nil)
	default:
		if logger != nil {
			logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		}
		response.Fail(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Register POST /api/register
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	_, err := h.Svc.Register(c.Request.Context(), userapp.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusCreated, nil, "Account Created Successfully", nil)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /api/login
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, token, exp, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	h.Cookies.Set(c, token, exp)
	response.Success(c, http.StatusOK, userapp.ToPublic(u), "Welcome back "+u.FirstName, nil)
}

// Logout GET /api/logout
// Clears the cookie only; the token stays valid until its natural expiry.
func (h *UserHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "Logged out successfully.", nil)
}

// GetProfile GET /api/profile (authenticated)
func (h *UserHandler) GetProfile(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}
	response.Success(c, http.StatusOK, userapp.ToPublic(u), "profile", nil)
}

type updateProfileRequest struct {
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Bio        *string `json:"bio"`
	Occupation *string `json:"occupation"`
	PhotoURL   *string `json:"photoUrl"`
	Instagram  *string `json:"instagram"`
	LinkedIn   *string `json:"linkedin"`
	GitHub     *string `json:"github"`
	Facebook   *string `json:"facebook"`
	Role       *string `json:"role"`
}

// UpdateProfile PUT /api/profile/update (authenticated)
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateProfile(c.Request.Context(), caller.ID, userapp.UpdateProfileInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Bio:        req.Bio,
		Occupation: req.Occupation,
		PhotoURL:   req.PhotoURL,
		Instagram:  req.Instagram,
		LinkedIn:   req.LinkedIn,
		GitHub:     req.GitHub,
		Facebook:   req.Facebook,
		Role:       req.Role,
	})
	if err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, userapp.ToPublic(u), "profile updated successfully", nil)
}

// AllUsers GET /api/all-users
func (h *UserHandler) AllUsers(c *gin.Context) {
	users, err := h.Svc.ListPublicUsers(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, users, "User list fetched successfully", map[string]any{"total": len(users)})
}

type requestResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset POST /api/password/request-reset
// Always answers with the same generic message so the caller cannot probe for
// registered emails.
func (h *UserHandler) RequestPasswordReset(c *gin.Context) {
	var req requestResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "If the email exists, a code was sent.", nil)
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyResetCode POST /api/password/verify-code
func (h *UserHandler) VerifyResetCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.VerifyResetCode(c.Request.Context(), req.Email, req.Code); err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Code verified", nil)
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword POST /api/password/reset
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeServiceError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Password reset successful", nil)
}
