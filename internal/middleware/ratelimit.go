package middleware

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter caps requests per client IP over a fixed window. It guards
// the AI generation endpoints, which are slow and quota-bound upstream.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*windowCount
	limit   int
	window  time.Duration
}

type windowCount struct {
	started time.Time
	count   int
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*windowCount),
		limit:   limit,
		window:  window,
	}

	// Sweep expired windows so idle clients do not accumulate.
	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-window)
			rl.mu.Lock()
			for ip, wc := range rl.clients {
				if wc.started.Before(cutoff) {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

func (rl *RateLimiter) allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	wc, ok := rl.clients[ip]
	if !ok || now.Sub(wc.started) > rl.window {
		rl.clients[ip] = &windowCount{started: now, count: 1}
		return true
	}

	wc.count++
	return wc.count <= rl.limit
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
