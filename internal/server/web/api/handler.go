package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ReneKroon/ttlcache/v2"
	"github.com/goccy/go-json"

	"github.com/pandeptwidyaop/uatrack/internal/server/config"
	"github.com/pandeptwidyaop/uatrack/internal/server/metrics"
	"github.com/pandeptwidyaop/uatrack/internal/server/web/middleware"
	"github.com/pandeptwidyaop/uatrack/internal/stats"
	apperrors "github.com/pandeptwidyaop/uatrack/pkg/errors"
	"github.com/pandeptwidyaop/uatrack/pkg/logger"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "uatrack-server"

// DashboardAggregator produces dashboard statistics.
type DashboardAggregator interface {
	Aggregate(ctx context.Context, window time.Duration, page, pageSize int) stats.DashboardStats
}

// Handler serves the public HTTP endpoints
type Handler struct {
	aggregator DashboardAggregator
	dashboard  config.DashboardConfig
	policy     middleware.RobotsPolicy
	metrics    *metrics.Metrics
	cache      *ttlcache.Cache
	now        func() time.Time
}

// NewHandler creates a new API handler. m may be nil, in which case /metrics is not served.
func NewHandler(agg DashboardAggregator, dashboard config.DashboardConfig, policy middleware.RobotsPolicy, m *metrics.Metrics) *Handler {
	h := &Handler{
		aggregator: agg,
		dashboard:  dashboard,
		policy:     policy,
		metrics:    m,
		now:        time.Now,
	}

	if dashboard.CacheTTL > 0 {
		cache := ttlcache.NewCache()
		if err := cache.SetTTL(dashboard.CacheTTL); err != nil {
			logger.WarnEvent().Err(err).Msg("Dashboard cache disabled")
			cache.Close()
		} else {
			cache.SkipTTLExtensionOnHit(true)
			h.cache = cache
		}
	}

	return h
}

// Close releases the dashboard cache.
func (h *Handler) Close() error {
	if h.cache == nil {
		return nil
	}
	return h.cache.Close()
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/version", h.version)
	mux.HandleFunc("GET "+middleware.RobotsPath, h.robotsTxt)

	mux.HandleFunc("GET /RequestDashboard", h.requestDashboard)
	mux.HandleFunc("GET /TestApi", h.testAPIGet)
	mux.HandleFunc("POST /TestApi", h.testAPIPost)

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.ErrorEvent().Err(err).Msg("Failed to encode JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, appErr *apperrors.AppError) {
	if appErr.Err != nil {
		logger.WarnEvent().Err(appErr).Int("status", status).Msg("Request failed")
	}
	respondJSON(w, status, map[string]string{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

// index describes the service
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": ServiceName,
		"endpoints": []string{
			"/health",
			"/api/version",
			"/RequestDashboard",
			"/TestApi",
			middleware.RobotsPath,
		},
	})
}

// health returns a simple health check response
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": ServiceName,
	})
}

func (h *Handler) robotsTxt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.policy.RobotsTxt()))
}

// Dashboard handler

func (h *Handler) requestDashboard(w http.ResponseWriter, r *http.Request) {
	page := parsePositive(r.URL.Query().Get("page"), stats.DefaultPage)
	pageSize := parsePositive(r.URL.Query().Get("pageSize"), h.dashboard.DefaultPageSize)
	if h.dashboard.MaxPageSize > 0 && pageSize > h.dashboard.MaxPageSize {
		pageSize = h.dashboard.MaxPageSize
	}

	if h.aggregator == nil {
		respondError(w, http.StatusServiceUnavailable,
			apperrors.NewAppError("DASHBOARD_UNAVAILABLE", "dashboard unavailable", apperrors.ErrStoreUnavailable))
		return
	}

	key := fmt.Sprintf("%d:%d", page, pageSize)
	if h.cache != nil {
		if cached, err := h.cache.Get(key); err == nil {
			if result, ok := cached.(stats.DashboardStats); ok {
				respondJSON(w, http.StatusOK, result)
				return
			}
		}
	}

	result := h.aggregator.Aggregate(r.Context(), h.dashboard.Window, page, pageSize)

	if h.cache != nil {
		if err := h.cache.Set(key, result); err != nil {
			logger.WarnEvent().Err(err).Str("key", key).Msg("Failed to cache dashboard stats")
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// parsePositive returns the integer in s, or def when s is empty, malformed or not positive.
func parsePositive(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Test API handlers

type testAPIResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"userAgent"`
	IPAddress string    `json:"ipAddress"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
}

func (h *Handler) testAPIGet(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.echo(r, "Hello from the API!"))
}

func (h *Handler) testAPIPost(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.echo(r, "POST request received"))
}

func (h *Handler) echo(r *http.Request, message string) testAPIResponse {
	return testAPIResponse{
		Message:   message,
		Timestamp: h.now().UTC(),
		UserAgent: r.UserAgent(),
		IPAddress: middleware.ClientIP(r),
		Method:    r.Method,
		Path:      r.URL.Path,
	}
}
