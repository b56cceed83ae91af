package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/tasknest/auth-service/internal/errors"
)

// APIResponse is the JSON envelope every endpoint speaks.
type APIResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

func JSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// SuccessResponse writes a successful envelope
func SuccessResponse(w http.ResponseWriter, status int, message string, data any) {
	JSONResponse(w, status, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse handles structured error responses
func ErrorResponse(w http.ResponseWriter, err error, logger *slog.Logger) {
	var appErr *apperrors.AppError

	if apperrors.IsType(err, apperrors.CodeInternalError) || !errors.As(err, &appErr) {
		// Log internal errors for debugging but don't expose details
		if logger != nil {
			logger.Error("Internal server error", slog.String("error", err.Error()))
		}

		appErr = apperrors.InternalError("An internal error occurred", err)
	} else if logger != nil {
		logger.Warn("Request failed",
			slog.String("code", appErr.Code),
			slog.String("message", appErr.Message))
	}

	JSONResponse(w, appErr.HTTPCode, APIResponse{
		Success:   false,
		Message:   appErr.Message,
		ErrorCode: appErr.Code,
	})
}

// ValidationErrorResponse writes a field-level validation failure
func ValidationErrorResponse(w http.ResponseWriter, message string, details map[string]string, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("Validation error",
			slog.String("message", message),
			slog.Any("details", details))
	}

	JSONResponse(w, http.StatusBadRequest, APIResponse{
		Success:   false,
		Message:   message,
		ErrorCode: apperrors.CodeValidationFailed,
		Data: map[string]any{
			"details": details,
		},
	})
}
