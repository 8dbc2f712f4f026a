package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"questacademy/internal/models"
	"questacademy/internal/security"
	"questacademy/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	tokens      *security.TokenIssuer
	limiter     *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, tokens *security.TokenIssuer, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		authService: authService,
		tokens:      tokens,
		limiter:     limiter,
	}
}

// RequireAuth validates the bearer token and loads the user into context
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondWithError(w, http.StatusUnauthorized, "Authentication required", "", nil)
			return
		}

		claims, err := m.tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired token", "", nil)
			return
		}

		user, err := m.authService.GetUser(claims.UserID)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired token", "Token for unknown user", err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// RequireTeacher allows only teacher and admin accounts through
func (m *Middleware) RequireTeacher(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || !user.IsTeacher() {
			respondWithError(w, http.StatusForbidden, "Teacher access required", "", nil)
			return
		}
		next(w, r)
	})
}

// RequireAdmin allows only admin accounts through
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || !user.IsAdmin() {
			respondWithError(w, http.StatusForbidden, "Admin access required", "", nil)
			return
		}
		next(w, r)
	})
}

// RateLimit rejects clients that exceed the request budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			respondWithError(w, http.StatusTooManyRequests, "Too many requests", "", nil)
			return
		}
		next(w, r)
	}
}

// Logging records each request with its duration
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// UserFromContext returns the authenticated user, or nil
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserContextKey).(*models.User)
	return user
}
