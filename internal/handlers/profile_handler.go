package handlers

import (
	"net/http"
	"strconv"

	"github.com/himalai/expense-service/internal/logger"
	"github.com/himalai/expense-service/internal/middleware"
	"github.com/himalai/expense-service/internal/models"
	"github.com/himalai/expense-service/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
	log      *logger.Logger
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		log:      logger.New("profile-handler"),
	}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.profiles.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Gender    *string `json:"gender,omitempty"`
	Age       *int    `json:"age,omitempty"`
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.profiles.Update(r.Context(), middleware.GetUserID(r.Context()), service.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Gender:    req.Gender,
		Age:       req.Age,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

type ListUsersResponse struct {
	Users []*models.User `json:"users"`
	Total int            `json:"total"`
}

func (h *ProfileHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, total, err := h.profiles.ListUsers(r.Context(), r.URL.Query().Get("search"), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ListUsersResponse{Users: users, Total: total})
}

func (h *ProfileHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	view, err := h.profiles.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *ProfileHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.GetUserID(r.Context())
	if err := h.profiles.DeleteUser(r.Context(), adminID, r.PathValue("id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

type SetAdminRequest struct {
	Admin bool `json:"admin"`
}

func (h *ProfileHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	var req SetAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	adminID := middleware.GetUserID(r.Context())
	if err := h.profiles.SetAdmin(r.Context(), adminID, r.PathValue("id"), req.Admin); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "admin flag updated"})
}
