package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
	log  *logger.Logger
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		log:  logger.New("auth-handler"),
	}
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type RegisterResponse struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.auth.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, RegisterResponse{
		UserID:  user.ID,
		Email:   user.Email,
		Message: "verification code sent",
	})
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.Verify(r.Context(), req.Email, req.Code); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "account verified"})
}

type ResendRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	var req ResendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.auth.ResendCode(r.Context(), req.Email); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Admin     bool      `json:"admin"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password, getClientIP(r), r.UserAgent())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		UserID:    result.User.ID,
		Email:     result.User.Email,
		FirstName: result.User.FirstName,
		LastName:  result.User.LastName,
		Admin:     result.User.Admin,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		respondError(w, http.StatusUnauthorized, "authorization header required")
		return
	}

	if err := h.auth.Logout(r.Context(), token); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
