package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/functional-assessment/backend/internal/api/handlers"
	"github.com/zatekoja/functional-assessment/backend/internal/api/middleware"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/observability"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	assessmentHandler *handlers.AssessmentHandler
	sseHandler        *handlers.SSEHandler
	websocketHandler  *handlers.WebSocketHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
	allowedOrigins  []string
	healthChecks    map[string]HealthCheck
	healthMu        sync.RWMutex
}

// NewRouter creates a new router
func NewRouter(
	assessmentHandler *handlers.AssessmentHandler,
	sseHandler *handlers.SSEHandler,
	websocketHandler *handlers.WebSocketHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		assessmentHandler: assessmentHandler,
		sseHandler:        sseHandler,
		websocketHandler:  websocketHandler,
		cacheMiddleware:   cacheMiddleware,
		metrics:           metrics,
		allowedOrigins:    allowedOrigins,
		healthChecks:      map[string]HealthCheck{},
	}
}

// AddHealthCheck registers a dependency probed by GET /health
func (r *Router) AddHealthCheck(name string, check HealthCheck) {
	r.healthMu.Lock()
	defer r.healthMu.Unlock()
	r.healthChecks[name] = check
}

// SetupRoutes sets up all routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.health)

	optimized := func(h http.HandlerFunc) http.Handler {
		return middleware.ResponseOptimization(h)
	}

	// Assessment endpoints
	r.mux.Handle("GET /api/assessment/info", optimized(r.assessmentHandler.GetInfo))
	r.mux.HandleFunc("POST /api/assessment/sessions", r.assessmentHandler.CreateSession)
	r.mux.Handle("GET /api/assessment/sessions", optimized(r.assessmentHandler.ListSessions))
	r.mux.Handle("GET /api/assessment/sessions/{id}", optimized(r.assessmentHandler.GetStatus))
	r.mux.HandleFunc("DELETE /api/assessment/sessions/{id}", r.assessmentHandler.DeleteSession)
	r.mux.HandleFunc("POST /api/assessment/sessions/{id}/respond", r.assessmentHandler.Respond)
	r.mux.Handle("GET /api/assessment/sessions/{id}/summary", optimized(r.assessmentHandler.GetSummary))
	r.mux.Handle("GET /api/assessment/sessions/{id}/transcript", optimized(r.assessmentHandler.GetTranscript))
	r.mux.HandleFunc("GET /api/assessment/sessions/{id}/report", r.assessmentHandler.GetReport)

	// Live updates
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/assessment/sessions/{id}/stream", r.sseHandler.StreamSession)
	}
	if r.websocketHandler != nil {
		r.mux.HandleFunc("GET /api/assessment/sessions/{id}/ws", r.websocketHandler.ServeSession)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORS(r.allowedOrigins)(handler)

	return handler
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	r.healthMu.RLock()
	checkers := make(map[string]HealthCheck, len(r.healthChecks))
	names := make([]string, 0, len(r.healthChecks))
	for name, check := range r.healthChecks {
		checkers[name] = check
		names = append(names, name)
	}
	r.healthMu.RUnlock()
	sort.Strings(names)

	status := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := checkers[name](ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]interface{}{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
