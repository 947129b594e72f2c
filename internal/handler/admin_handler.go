package handler

import (
	"net/http"
	"strings"

	"livepoll/internal/container"
	"livepoll/internal/domain"
	"livepoll/internal/middleware"
	"livepoll/internal/service"
	"livepoll/pkg/errors"
	"livepoll/pkg/logger"
)

// AdminHandler handles admin account requests
type AdminHandler struct {
	auth   service.AuthService
	logger *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(container *container.Container) *AdminHandler {
	return &AdminHandler{
		auth:   container.GetAuthService(),
		logger: container.GetLogger().Named("http.admin"),
	}
}

// Status handles GET /api/admin/status
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.auth.Status(r.Context())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// Register handles POST /api/admin/register
func (h *AdminHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.credentials(w, r)
	if !ok {
		return
	}

	resp, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.credentials(w, r)
	if !ok {
		return
	}

	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// VerifyOTP handles POST /api/admin/verify-otp
func (h *AdminHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.OTPRequest
	if appErr := decodeJSON(w, r, &req, false); appErr != nil {
		writeError(w, r, appErr, h.logger)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, r, errors.NewValidationError("OTP code is required", nil), h.logger)
		return
	}

	resp, err := h.auth.VerifyOTP(r.Context(), req.Code)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	h.adminLogger(r).Info("Admin logged out")
	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /api/admin/profile
func (h *AdminHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.auth.Profile(r.Context())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/admin/profile
func (h *AdminHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProfileRequest
	if appErr := decodeJSONLimit(w, r, &req, false, maxProfileBodyBytes); appErr != nil {
		writeError(w, r, appErr, h.logger)
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, r, errors.NewValidationError("Name cannot be empty", nil), h.logger)
		return
	}

	profile, err := h.auth.UpdateProfile(r.Context(), &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	h.adminLogger(r).Info("Admin profile updated")
	respondJSON(w, http.StatusOK, profile)
}

func (h *AdminHandler) credentials(w http.ResponseWriter, r *http.Request) (*domain.CredentialsRequest, bool) {
	var req domain.CredentialsRequest
	if appErr := decodeJSON(w, r, &req, false); appErr != nil {
		writeError(w, r, appErr, h.logger)
		return nil, false
	}

	details := map[string]interface{}{}
	if email := strings.TrimSpace(req.Email); email == "" || !strings.Contains(email, "@") {
		details["email"] = "a valid email is required"
	}
	if req.Password == "" {
		details["password"] = "required"
	}
	if len(details) > 0 {
		writeError(w, r, errors.NewValidationError("Email and password are required", details), h.logger)
		return nil, false
	}
	return &req, true
}

// adminLogger tags log lines with the admin the gate let through
func (h *AdminHandler) adminLogger(r *http.Request) *logger.Logger {
	if claims, ok := middleware.AdminFromContext(r.Context()); ok {
		return h.logger.WithField("admin", claims.Email)
	}
	return h.logger
}
