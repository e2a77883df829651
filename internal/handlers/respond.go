package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/himalai/expense-service/internal/service"
	"github.com/himalai/expense-service/internal/validation"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   "error",
		Message: message,
	})
}

// respondServiceError maps service sentinels onto HTTP statuses.
// Anything unmapped is a 500 with a generic message so internals never
// leak to clients.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrPermissionDenied):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidSession),
		errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotVerified):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrDuplicateCode),
		errors.Is(err, service.ErrImportInProgress):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrAlreadyVerified),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidDiscount),
		errors.Is(err, service.ErrVoucherNotUsable),
		errors.Is(err, service.ErrMinPurchase),
		isValidationError(err):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func isValidationError(err error) bool {
	for _, v := range []error{
		validation.ErrEmailRequired,
		validation.ErrEmailInvalid,
		validation.ErrEmailTooLong,
		validation.ErrPasswordRequired,
		validation.ErrPasswordTooShort,
		validation.ErrPasswordTooLong,
		validation.ErrNameTooLong,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	addr := r.RemoteAddr
	if strings.HasPrefix(addr, "[") {
		// Bracketed IPv6 with port.
		if end := strings.Index(addr, "]"); end > 0 {
			addr = addr[1:end]
		}
	} else if idx := strings.LastIndex(addr, ":"); idx > 0 && strings.Count(addr, ":") == 1 {
		addr = addr[:idx]
	}

	if addr == "::1" {
		return "127.0.0.1"
	}
	return addr
}
