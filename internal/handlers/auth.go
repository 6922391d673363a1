package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/stogden/crease/internal/auth"
	"github.com/stogden/crease/internal/models"
	"github.com/stogden/crease/internal/services"
	pkgauth "github.com/stogden/crease/pkg/auth"
	pkghttp "github.com/stogden/crease/pkg/http"
)

// AuthServiceInterface defines the interface for account security logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error)
	Register(ctx context.Context, in services.RegisterInput, ipAddress string) (*services.AuthResponse, error)
	ChangePassword(ctx context.Context, accountID, currentPassword, newPassword, ipAddress string) error
	ForgotPassword(ctx context.Context, email, ipAddress string) error
	ResetPassword(ctx context.Context, email, code, newPassword, ipAddress string) error
	Me(ctx context.Context, accountID string) (*services.AccountResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for self-registration. Coach and
// admin accounts are provisioned by an administrator, not through this body.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
	Role     string `json:"role" validate:"required,oneof=parent player"`
}

// ChangePasswordRequest represents the request body for an authenticated password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ForgotPasswordRequest represents the request body for requesting a reset code
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for completing a reset
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required"`
}

const forgotPasswordMessage = "If an account exists with this email, a reset code has been sent."

// Login handles account login
// @Summary Account login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 423 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	authResp, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress, userAgent)
	if err != nil {
		h.writeLoginError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// writeLoginError maps login failures onto the HTTP surface. The error
// messages are passed through verbatim: the service controls exactly how
// much is disclosed.
func (h *AuthHandler) writeLoginError(w http.ResponseWriter, err error) {
	var lockedErr *models.LockedError
	var credErr *models.CredentialsError
	var statusErr *models.StatusError

	switch {
	case errors.As(err, &lockedErr):
		pkghttp.WriteLocked(w, lockedErr.Error(), lockedErr.RemainingMinutes)
	case errors.As(err, &credErr):
		pkghttp.WriteUnauthorized(w, credErr.Error())
	case errors.As(err, &statusErr):
		pkghttp.WriteForbidden(w, statusErr.Error())
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Email and password are required")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// Register handles account self-registration
// @Summary Account registration
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 201 {object} services.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	authResp, err := h.service.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     req.Role,
	}, ipAddress)
	if err != nil {
		var pvErr *pkgauth.PasswordValidationError
		switch {
		case errors.As(err, &pvErr):
			pkghttp.WriteBadRequest(w, pvErr.Error())
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid registration request")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, authResp)
}

// ChangePassword handles an authenticated password change
// @Summary Change password
// @Accept json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Change password request"
// @Produce json
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req ChangePasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	err := h.service.ChangePassword(r.Context(), claims.AccountID, req.CurrentPassword, req.NewPassword, ipAddress)
	if err != nil {
		var pvErr *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Current password is incorrect")
		case errors.As(err, &pvErr):
			pkghttp.WriteBadRequest(w, pvErr.Error())
		case errors.Is(err, models.ErrPasswordReused):
			pkghttp.WriteBadRequest(w, "New password must differ from your recent passwords")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ForgotPassword handles a reset-code request. The response is identical for
// registered and unregistered emails so the endpoint cannot be used to probe
// which addresses have accounts.
// @Summary Request a password reset code
// @Accept json
// @Param request body ForgotPasswordRequest true "Forgot password request"
// @Produce json
// @Success 202
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	if err := h.service.ForgotPassword(r.Context(), req.Email, ipAddress); err != nil {
		if errors.Is(err, models.ErrEmailDelivery) {
			pkghttp.WriteServiceUnavailable(w, "Unable to send reset email. Please try again later.")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": forgotPasswordMessage,
	})
}

// ResetPassword handles completion of a password reset with an emailed code
// @Summary Reset password with a code
// @Accept json
// @Param request body ResetPasswordRequest true "Reset password request"
// @Produce json
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword, ipAddress)
	if err != nil {
		var pvErr *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrResetTokenExpired):
			pkghttp.WriteBadRequest(w, "Reset code has expired. Please request a new one.")
		case errors.Is(err, models.ErrInvalidResetToken):
			pkghttp.WriteBadRequest(w, "Invalid or expired reset code")
		case errors.As(err, &pvErr):
			pkghttp.WriteBadRequest(w, pvErr.Error())
		case errors.Is(err, models.ErrPasswordReused):
			pkghttp.WriteBadRequest(w, "New password must differ from your recent passwords")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated account's profile
// @Summary Current account
// @Security BearerAuth
// @Produce json
// @Success 200 {object} services.AccountResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	account, err := h.service.Me(r.Context(), claims.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUnauthorized(w, "unauthorized")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, account)
}
