package handlers

import (
	"net/http"

	"questacademy/internal/models"
	"questacademy/internal/service"
)

// SyncHandler lets clients reconcile locally held counters with the server.
// A client that has been playing offline posts its counter snapshot; the
// server merges max-wins and returns the resolved values.
type SyncHandler struct {
	walletRepo walletRaiser
}

type walletRaiser interface {
	RaiseCounter(userID int64, name string, value int64) error
	GetCounter(userID int64, name string) (int64, error)
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(walletRepo walletRaiser) *SyncHandler {
	return &SyncHandler{walletRepo: walletRepo}
}

type syncRequest struct {
	Counters map[string]int64 `json:"counters"`
}

type syncResolution struct {
	Local    int64 `json:"local"`
	Remote   int64 `json:"remote"`
	Resolved int64 `json:"resolved"`
}

type syncResponse struct {
	State    string                    `json:"state"`
	Counters map[string]syncResolution `json:"counters"`
}

// Reconcile handles POST /api/sync/counters
func (h *SyncHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req syncRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	synced := make(map[string]bool)
	for _, name := range models.SyncedCounterNames() {
		synced[name] = true
	}
	for name := range req.Counters {
		if !synced[name] {
			respondWithError(w, http.StatusBadRequest, "Unknown or unsyncable counter: "+name, "", nil)
			return
		}
	}

	state := service.StateSynced
	resp := syncResponse{Counters: make(map[string]syncResolution)}

	for _, name := range models.SyncedCounterNames() {
		local, sent := req.Counters[name]
		if !sent {
			continue
		}

		remote, err := h.walletRepo.GetCounter(user.ID, name)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "Failed to read counter", "Counter read failed", err)
			return
		}

		res := service.Reconcile(name, local, remote)
		if res.WriteRemote {
			if err := h.walletRepo.RaiseCounter(user.ID, name, res.Resolved); err != nil {
				respondWithError(w, http.StatusInternalServerError, "Failed to write counter", "Counter write failed", err)
				return
			}
		}
		if res.WriteLocal || res.WriteRemote {
			state = service.StateConflictResolved
		}

		resp.Counters[name] = syncResolution{
			Local:    res.Local,
			Remote:   res.Remote,
			Resolved: res.Resolved,
		}
	}

	resp.State = state.String()
	writeJSON(w, http.StatusOK, resp)
}
