package handlers

import (
	"net/http"
	"strconv"
	"time"

	"questacademy/internal/achievements"
	"questacademy/internal/service"
	"questacademy/internal/stats"
)

// StatsHandler serves derived statistics and achievements
type StatsHandler struct {
	ledgerService *service.LedgerService
	rosterService *service.RosterService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(ledgerService *service.LedgerService, rosterService *service.RosterService) *StatsHandler {
	return &StatsHandler{
		ledgerService: ledgerService,
		rosterService: rosterService,
	}
}

type statsResponse struct {
	CompletedCount int            `json:"completed_count"`
	PerSubject     map[string]int `json:"per_subject"`
	ExamsTaken     int            `json:"exams_taken"`
	AverageScore   int            `json:"average_score"`
	PerfectScores  int            `json:"perfect_scores"`
	LevelLabel     string         `json:"level_label"`
	Tokens         int64          `json:"tokens"`
	XP             int64          `json:"xp"`
	BestStreak     int64          `json:"best_streak"`
	Level          int            `json:"level"`
	XPToNext       int64          `json:"xp_to_next"`
}

func toStatsResponse(s stats.Stats) statsResponse {
	return statsResponse{
		CompletedCount: s.CompletedCount,
		PerSubject:     s.PerSubject,
		ExamsTaken:     s.ExamsTaken,
		AverageScore:   s.AverageScore,
		PerfectScores:  s.PerfectScores,
		LevelLabel:     s.LevelLabel,
		Tokens:         s.Tokens,
		XP:             s.XP,
		BestStreak:     s.BestStreak,
		Level:          s.Level,
		XPToNext:       s.XPToNext,
	}
}

func (h *StatsHandler) resolveTarget(w http.ResponseWriter, r *http.Request) (int64, bool) {
	viewer := UserFromContext(r.Context())

	targetID := viewer.ID
	if raw := r.PathValue("id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid student id", "", nil)
			return 0, false
		}
		targetID = parsed
	}

	allowed, err := h.rosterService.CanViewStudent(viewer, targetID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to check access", "Access check failed", err)
		return 0, false
	}
	if !allowed {
		respondWithError(w, http.StatusForbidden, "Not connected to this student", "", nil)
		return 0, false
	}
	return targetID, true
}

// Stats handles GET /api/stats and GET /api/students/{id}/stats
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	targetID, ok := h.resolveTarget(w, r)
	if !ok {
		return
	}

	s, err := h.ledgerService.Stats(targetID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to compute stats", "Stats computation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toStatsResponse(s))
}

type achievementEntry struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// Achievements handles GET /api/achievements and
// GET /api/students/{id}/achievements. The full catalogue is returned with
// unlock status so clients can render locked entries too.
func (h *StatsHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	targetID, ok := h.resolveTarget(w, r)
	if !ok {
		return
	}

	unlocked, err := h.ledgerService.Achievements(targetID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load achievements", "Achievement load failed", err)
		return
	}

	unlockedAt := make(map[string]time.Time, len(unlocked))
	for _, ua := range unlocked {
		unlockedAt[ua.AchievementID] = ua.UnlockedAt
	}

	var entries []achievementEntry
	for _, def := range achievements.All() {
		entry := achievementEntry{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
		}
		if at, ok := unlockedAt[def.ID]; ok {
			entry.Unlocked = true
			t := at
			entry.UnlockedAt = &t
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, entries)
}
