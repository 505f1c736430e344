package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"metas/internal/cache"
	"metas/internal/core"
	"metas/internal/services"
)

// ownerHeader carries the caller identity. Every /api route requires it.
const ownerHeader = "X-Owner-ID"

type Server struct {
	http.Server
	goals       *services.GoalService
	ledger      *services.LedgerService
	rateLimiter *rateLimiter

	// Per-owner dashboard snapshots; invalidated on every goal mutation.
	dashboardCache *cache.LRUCache[[]core.GoalView]
	dashGroup      singleflight.Group
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and caches, returning a ready-to-run http.Server.
func NewServer(addr string, goals *services.GoalService, ledger *services.LedgerService, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		goals:          goals,
		ledger:         ledger,
		rateLimiter:    newRateLimiter(),
		dashboardCache: cache.NewLRUCache[[]core.GoalView](500, cacheTTL),
		cacheManager:   cache.NewManager(),
	}

	s.cacheManager.Register(s.dashboardCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/goals", s.withMiddleware(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.withMiddleware(s.handleCreateGoal))
	mux.HandleFunc("GET /api/goals/stats", s.withMiddleware(s.handleGoalStats))
	mux.HandleFunc("GET /api/goals/upcoming", s.withMiddleware(s.handleUpcomingDeadlines))
	mux.HandleFunc("GET /api/goals/{id}", s.withMiddleware(s.handleGetGoal))
	mux.HandleFunc("PUT /api/goals/{id}", s.withMiddleware(s.handleEditGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.withMiddleware(s.handleDeleteGoal))
	mux.HandleFunc("POST /api/goals/{id}/amount", s.withMiddleware(s.handleContribute))
	mux.HandleFunc("POST /api/goals/{id}/complete", s.withMiddleware(s.handleCompleteGoal))
	mux.HandleFunc("POST /api/goals/{id}/cancel", s.withMiddleware(s.handleCancelGoal))

	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withMiddleware(s.handleAddTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withMiddleware(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/summary", s.withMiddleware(s.handleSummary))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

type ownerHandler func(w http.ResponseWriter, r *http.Request, ownerID string)

// withMiddleware adds security headers, rate limiting, request logging, and
// caller identification to API handlers.
func (s *Server) withMiddleware(next ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		// Generate request ID for tracing
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate limit mutations only; dashboard reads are cached anyway
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		ownerID := r.Header.Get(ownerHeader)
		if ownerID == "" {
			writeError(w, http.StatusUnauthorized, "missing "+ownerHeader+" header")
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r, ownerID)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateDashboard drops the owner's cached snapshot after a mutation.
func (s *Server) invalidateDashboard(ownerID string) {
	s.dashboardCache.Delete(ownerID)
}

// dashboardViews returns the owner's ranked goal views, deduplicating
// concurrent misses through singleflight.
func (s *Server) dashboardViews(ctx context.Context, ownerID string) ([]core.GoalView, error) {
	if views, found := s.dashboardCache.Get(ownerID); found {
		slog.DebugContext(ctx, "Dashboard cache hit", "owner_id", ownerID)
		return views, nil
	}

	v, err, _ := s.dashGroup.Do(ownerID, func() (any, error) {
		views, err := s.goals.Goals(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		s.dashboardCache.Set(ownerID, views)
		return views, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.GoalView), nil
}
