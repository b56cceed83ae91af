package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"github.com/tasknest/auth-service/internal/auth"
	apperrors "github.com/tasknest/auth-service/internal/errors"
	"github.com/tasknest/auth-service/internal/identity"
	"github.com/tasknest/auth-service/internal/web/middleware"
	"github.com/tasknest/auth-service/internal/web/response"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type AuthHandler struct {
	Service *auth.Service
	Logger  *slog.Logger
}

func NewAuthHandler(service *auth.Service, logger *slog.Logger) AuthHandler {
	return AuthHandler{
		Service: service,
		Logger:  logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ErrorResponse(w, apperrors.ValidationError("Invalid request body", err), h.Logger)
		return
	}

	if details := validateRegisterRequest(req); len(details) > 0 {
		response.ValidationErrorResponse(w, "Validation failed", details, h.Logger)
		return
	}

	result, err := h.Service.Register(r.Context(), req.Username, req.Password, identity.Role(req.Role))
	if err != nil {
		response.ErrorResponse(w, err, h.Logger)
		return
	}

	response.SuccessResponse(w, http.StatusCreated, "User registered successfully", result)
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ErrorResponse(w, apperrors.ValidationError("Invalid request body", err), h.Logger)
		return
	}

	if details := validateLoginRequest(req); len(details) > 0 {
		response.ValidationErrorResponse(w, "Validation failed", details, h.Logger)
		return
	}

	result, err := h.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		response.ErrorResponse(w, err, h.Logger)
		return
	}

	response.SuccessResponse(w, http.StatusOK, "Login successful", result)
}

func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ErrorResponse(w, apperrors.ValidationError("Invalid request body", err), h.Logger)
		return
	}

	if req.RefreshToken == "" {
		response.ErrorResponse(w, apperrors.ValidationError("Refresh token is required", nil), h.Logger)
		return
	}

	pair, err := h.Service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.ErrorResponse(w, err, h.Logger)
		return
	}

	response.SuccessResponse(w, http.StatusOK, "Token refreshed successfully", pair)
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ErrorResponse(w, apperrors.ValidationError("Invalid request body", err), h.Logger)
		return
	}

	if err := h.Service.Logout(r.Context(), req.RefreshToken); err != nil {
		response.ErrorResponse(w, err, h.Logger)
		return
	}

	response.SuccessResponse(w, http.StatusOK, "Logged out successfully", nil)
}

// HandleLogoutAll revokes every session of the authenticated identity. It
// must sit behind the Authenticate middleware.
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.ErrorResponse(w, apperrors.UnauthorizedError("Unauthorized", nil), h.Logger)
		return
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		response.ErrorResponse(w, apperrors.UnauthorizedError("Unauthorized", err), h.Logger)
		return
	}

	if err := h.Service.LogoutAll(r.Context(), userID); err != nil {
		response.ErrorResponse(w, err, h.Logger)
		return
	}

	response.SuccessResponse(w, http.StatusOK, "Logged out from all devices successfully", nil)
}

func validateRegisterRequest(req registerRequest) map[string]string {
	details := make(map[string]string)

	switch {
	case len(req.Username) < 3:
		details["username"] = "Username must be at least 3 characters"
	case len(req.Username) > 50:
		details["username"] = "Username must not exceed 50 characters"
	case !usernamePattern.MatchString(req.Username):
		details["username"] = "Username can only contain letters, numbers, and underscores"
	}

	switch {
	case len(req.Password) < 6:
		details["password"] = "Password must be at least 6 characters"
	case len(req.Password) > 100:
		details["password"] = "Password must not exceed 100 characters"
	}

	// An omitted role defaults to User downstream.
	if req.Role != "" && !identity.Role(req.Role).IsValid() {
		details["role"] = "Role must be one of Manager, User, Employee, Admin"
	}

	return details
}

func validateLoginRequest(req loginRequest) map[string]string {
	details := make(map[string]string)

	if req.Username == "" {
		details["username"] = "Username is required"
	}
	if req.Password == "" {
		details["password"] = "Password is required"
	}

	return details
}
