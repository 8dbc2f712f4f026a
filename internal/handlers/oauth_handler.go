package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"questacademy/internal/service"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthHandler runs the Google sign-in flow. State values are held in
// memory with a short expiry; a restart invalidates in-flight logins, which
// is acceptable for a login redirect.
type OAuthHandler struct {
	authService *service.AuthService
	config      *oauth2.Config

	mu     sync.Mutex
	states map[string]time.Time
}

// NewOAuthHandler creates a Google OAuth handler. Returns nil when no
// client ID is configured so the routes can be skipped.
func NewOAuthHandler(authService *service.AuthService, clientID, clientSecret, redirectBase string) *OAuthHandler {
	if clientID == "" {
		return nil
	}
	return &OAuthHandler{
		authService: authService,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectBase + "/api/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		states: make(map[string]time.Time),
	}
}

func (h *OAuthHandler) newState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	h.mu.Lock()
	now := time.Now()
	for s, created := range h.states {
		if now.Sub(created) > 10*time.Minute {
			delete(h.states, s)
		}
	}
	h.states[state] = now
	h.mu.Unlock()

	return state, nil
}

func (h *OAuthHandler) consumeState(state string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	created, ok := h.states[state]
	if !ok {
		return false
	}
	delete(h.states, state)
	return time.Since(created) <= 10*time.Minute
}

// Begin handles GET /api/auth/google and redirects to Google's consent page
func (h *OAuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	state, err := h.newState()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to start sign-in", "Failed to generate oauth state", err)
		return
	}
	url := h.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Callback handles GET /api/auth/google/callback
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if !h.consumeState(r.URL.Query().Get("state")) {
		respondWithError(w, http.StatusBadRequest, "Invalid or expired sign-in state", "", nil)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Missing authorization code", "", nil)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Sign-in failed", "OAuth code exchange failed", err)
		return
	}

	info, err := h.fetchUserInfo(r, token)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Sign-in failed", "Failed to fetch Google user info", err)
		return
	}
	if info.Email == "" {
		respondWithError(w, http.StatusBadGateway, "Google account has no email", "", nil)
		return
	}

	user, appToken, err := h.authService.OAuthLogin("google", info.ID, info.Email, info.Name)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Sign-in failed", "OAuth login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: appToken, User: toUserResponse(user)})
}

func (h *OAuthHandler) fetchUserInfo(r *http.Request, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(r.Context(), oauth2.StaticTokenSource(token))
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
