package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"questacademy/internal/service"
)

// WalletHandler serves the token wallet endpoints
type WalletHandler struct {
	walletService *service.WalletService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

type walletResponse struct {
	Tokens     int64 `json:"tokens"`
	XP         int64 `json:"xp"`
	BestStreak int64 `json:"best_streak"`
}

// Get handles GET /api/wallet
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	wallet, err := h.walletService.Get(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load wallet", "Wallet load failed", err)
		return
	}

	writeJSON(w, http.StatusOK, walletResponse{
		Tokens:     wallet.Tokens,
		XP:         wallet.XP,
		BestStreak: wallet.BestStreak,
	})
}

type spendRequest struct {
	Amount int64 `json:"amount"`
}

type grantRequest struct {
	Amount int64 `json:"amount"`
}

// Grant handles POST /api/admin/users/{id}/grant. Admins can award bonus
// tokens; students never mint their own.
func (h *WalletHandler) Grant(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid user id", "", nil)
		return
	}

	var req grantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	if err := h.walletService.Earn(userID, req.Amount); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Token grant failed", err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// Spend handles POST /api/wallet/spend
func (h *WalletHandler) Spend(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req spendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	if err := h.walletService.Spend(user.ID, req.Amount); err != nil {
		if errors.Is(err, service.ErrInsufficientTokens) {
			respondWithError(w, http.StatusConflict, "Not enough tokens", "", nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error(), "Spend failed", err)
		return
	}

	wallet, err := h.walletService.Get(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load wallet", "Wallet load failed", err)
		return
	}

	writeJSON(w, http.StatusOK, walletResponse{
		Tokens:     wallet.Tokens,
		XP:         wallet.XP,
		BestStreak: wallet.BestStreak,
	})
}
