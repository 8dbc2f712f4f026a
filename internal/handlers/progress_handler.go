package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"questacademy/internal/models"
	"questacademy/internal/service"
)

// ProgressHandler serves the progress ledger endpoints
type ProgressHandler struct {
	ledgerService *service.LedgerService
	rosterService *service.RosterService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(ledgerService *service.LedgerService, rosterService *service.RosterService) *ProgressHandler {
	return &ProgressHandler{
		ledgerService: ledgerService,
		rosterService: rosterService,
	}
}

type completionRequest struct {
	LessonID  string `json:"lesson_id"`
	SubjectID string `json:"subject_id"`
	YearLevel int    `json:"year_level"`
}

type completionResponse struct {
	AlreadyCompleted bool     `json:"already_completed"`
	NewAchievements  []string `json:"new_achievements,omitempty"`
}

// Complete handles POST /api/progress/complete
func (h *ProgressHandler) Complete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req completionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	result, err := h.ledgerService.RecordCompletion(user.ID, req.LessonID, req.SubjectID, req.YearLevel)
	if err != nil {
		if errors.Is(err, service.ErrEmptyLessonID) {
			respondWithError(w, http.StatusBadRequest, "Lesson id is required", "", nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error(), "Failed to record completion", err)
		return
	}

	writeJSON(w, http.StatusOK, completionResponse{
		AlreadyCompleted: result.AlreadyCompleted,
		NewAchievements:  result.NewAchievements,
	})
}

type scoreRequest struct {
	SubjectID  string `json:"subject_id"`
	YearLevel  int    `json:"year_level"`
	Score      int    `json:"score"`
	TotalMarks int    `json:"total_marks"`
	AttemptKey string `json:"attempt_key,omitempty"`
}

type scoreResponse struct {
	AttemptKey      string   `json:"attempt_key"`
	Percentage      int      `json:"percentage"`
	Duplicate       bool     `json:"duplicate"`
	NewAchievements []string `json:"new_achievements,omitempty"`
}

// SubmitScore handles POST /api/progress/scores
func (h *ProgressHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	result, err := h.ledgerService.RecordScore(user.ID, req.SubjectID, req.YearLevel, req.Score, req.TotalMarks, req.AttemptKey)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Failed to record score", err)
		return
	}

	writeJSON(w, http.StatusOK, scoreResponse{
		AttemptKey:      result.Record.AttemptKey,
		Percentage:      result.Record.Percentage,
		Duplicate:       result.Duplicate,
		NewAchievements: result.NewAchievements,
	})
}

type streakRequest struct {
	Streak int64 `json:"streak"`
}

// SubmitStreak handles POST /api/progress/streak
func (h *ProgressHandler) SubmitStreak(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req streakRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	newAchievements, err := h.ledgerService.RecordStreak(user.ID, req.Streak)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Failed to record streak", err)
		return
	}

	writeJSON(w, http.StatusOK, completionResponse{NewAchievements: newAchievements})
}

type progressEntry struct {
	LessonID    string     `json:"lesson_id"`
	SubjectID   string     `json:"subject_id"`
	YearLevel   int        `json:"year_level"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type scoreEntry struct {
	SubjectID   string    `json:"subject_id"`
	YearLevel   int       `json:"year_level"`
	Score       int       `json:"score"`
	TotalMarks  int       `json:"total_marks"`
	Percentage  int       `json:"percentage"`
	AttemptKey  string    `json:"attempt_key"`
	CompletedAt time.Time `json:"completed_at"`
}

type historyResponse struct {
	Progress []progressEntry `json:"progress"`
	Scores   []scoreEntry    `json:"scores"`
}

// History handles GET /api/progress and GET /api/students/{id}/progress
func (h *ProgressHandler) History(w http.ResponseWriter, r *http.Request) {
	viewer := UserFromContext(r.Context())

	targetID := viewer.ID
	if raw := r.PathValue("id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid student id", "", nil)
			return
		}
		targetID = parsed
	}

	allowed, err := h.rosterService.CanViewStudent(viewer, targetID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to check access", "Access check failed", err)
		return
	}
	if !allowed {
		respondWithError(w, http.StatusForbidden, "Not connected to this student", "", nil)
		return
	}

	progress, scores, err := h.ledgerService.History(targetID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load history", "History load failed", err)
		return
	}

	resp := historyResponse{
		Progress: make([]progressEntry, 0, len(progress)),
		Scores:   make([]scoreEntry, 0, len(scores)),
	}
	for _, p := range progress {
		resp.Progress = append(resp.Progress, toProgressEntry(p))
	}
	for _, s := range scores {
		resp.Scores = append(resp.Scores, toScoreEntry(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

func toProgressEntry(p models.ProgressRecord) progressEntry {
	return progressEntry{
		LessonID:    p.LessonID,
		SubjectID:   p.SubjectID,
		YearLevel:   p.YearLevel,
		Completed:   p.Completed,
		CompletedAt: p.CompletedAt,
	}
}

func toScoreEntry(s models.ScoreRecord) scoreEntry {
	return scoreEntry{
		SubjectID:   s.SubjectID,
		YearLevel:   s.YearLevel,
		Score:       s.Score,
		TotalMarks:  s.TotalMarks,
		Percentage:  s.Percentage,
		AttemptKey:  s.AttemptKey,
		CompletedAt: s.CompletedAt,
	}
}
