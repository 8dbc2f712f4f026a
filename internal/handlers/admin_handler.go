package handlers

import (
	"net/http"
	"strconv"

	"questacademy/internal/repository"
	"questacademy/internal/validation"
)

// AdminHandler serves account administration endpoints
type AdminHandler struct {
	userRepo *repository.UserRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userRepo *repository.UserRepository) *AdminHandler {
	return &AdminHandler{userRepo: userRepo}
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.ListUsers()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list users", "User list failed", err)
		return
	}

	entries := make([]userResponse, 0, len(users))
	for i := range users {
		entries = append(entries, toUserResponse(&users[i]))
	}
	writeJSON(w, http.StatusOK, entries)
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// SetRole handles PUT /api/admin/users/{id}/role
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id", "", nil)
		return
	}

	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}
	if err := validation.ValidateRole(req.Role); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	admin := UserFromContext(r.Context())
	if admin.ID == userID {
		respondWithError(w, http.StatusBadRequest, "Cannot change your own role", "", nil)
		return
	}

	if err := h.userRepo.SetRole(userID, req.Role); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update role", "Role update failed", err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
