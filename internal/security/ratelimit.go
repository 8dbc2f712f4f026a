package security

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a per-client fixed-window limiter keyed by IP address
type RateLimiter struct {
	clients map[string]*clientWindow
	mu      sync.Mutex
	limit   int
	window  time.Duration
}

type clientWindow struct {
	count   int
	started time.Time
}

// NewRateLimiter creates a rate limiter allowing limit requests per window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
	}
	go rl.evictStale()
	return rl
}

// Allow reports whether a request from the given IP should proceed
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cw, ok := rl.clients[ip]
	if !ok || now.Sub(cw.started) >= rl.window {
		rl.clients[ip] = &clientWindow{count: 1, started: now}
		return true
	}

	if cw.count < rl.limit {
		cw.count++
		return true
	}
	return false
}

// evictStale drops idle client entries so the map cannot grow unbounded
func (rl *RateLimiter) evictStale() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, cw := range rl.clients {
			if now.Sub(cw.started) > rl.window*2 {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// GetClientIP extracts the client IP from the request, honouring proxy
// headers when present
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
