package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"questacademy/internal/models"
	"questacademy/internal/service"
)

// RosterHandler serves teacher-student connection endpoints
type RosterHandler struct {
	rosterService *service.RosterService
}

// NewRosterHandler creates a new roster handler
func NewRosterHandler(rosterService *service.RosterService) *RosterHandler {
	return &RosterHandler{rosterService: rosterService}
}

type inviteRequest struct {
	StudentEmail string `json:"student_email"`
	Relationship string `json:"relationship,omitempty"`
}

type connectionEntry struct {
	ID           int64     `json:"id"`
	TeacherID    int64     `json:"teacher_id"`
	StudentID    int64     `json:"student_id"`
	TeacherName  string    `json:"teacher_name"`
	StudentName  string    `json:"student_name"`
	Relationship string    `json:"relationship"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func toConnectionEntry(c models.StudentConnection) connectionEntry {
	return connectionEntry{
		ID:           c.ID,
		TeacherID:    c.TeacherID,
		StudentID:    c.StudentID,
		TeacherName:  c.TeacherName,
		StudentName:  c.StudentName,
		Relationship: c.Relationship,
		Status:       c.Status,
		CreatedAt:    c.CreatedAt,
	}
}

// Invite handles POST /api/connections/invite
func (h *RosterHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	conn, err := h.rosterService.InviteStudent(r.Context(), user.ID, req.StudentEmail, req.Relationship)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondWithError(w, http.StatusNotFound, "No account with that email", "", nil)
		case errors.Is(err, service.ErrNotStudent):
			respondWithError(w, http.StatusBadRequest, "That account is not a student", "", nil)
		case errors.Is(err, service.ErrAlreadyConnected):
			respondWithError(w, http.StatusConflict, "Connection already exists", "", nil)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to create invitation", "Invitation failed", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toConnectionEntry(*conn))
}

type respondRequest struct {
	Accept bool `json:"accept"`
}

// Respond handles POST /api/connections/{id}/respond
func (h *RosterHandler) Respond(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	connID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid connection id", "", nil)
		return
	}

	var req respondRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	conn, err := h.rosterService.Respond(user.ID, connID, req.Accept)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConnectionMissing):
			respondWithError(w, http.StatusNotFound, "Connection not found", "", nil)
		case errors.Is(err, service.ErrNotAuthorized):
			respondWithError(w, http.StatusForbidden, "Not your invitation", "", nil)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to update connection", "Connection update failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, toConnectionEntry(*conn))
}

// List handles GET /api/connections. Teachers see their roster; students
// see their invitations.
func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var (
		conns []models.StudentConnection
		err   error
	)
	if user.IsTeacher() {
		conns, err = h.rosterService.Students(user.ID)
	} else {
		conns, err = h.rosterService.Invitations(user.ID)
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load connections", "Connection list failed", err)
		return
	}

	entries := make([]connectionEntry, 0, len(conns))
	for _, c := range conns {
		entries = append(entries, toConnectionEntry(c))
	}
	writeJSON(w, http.StatusOK, entries)
}
