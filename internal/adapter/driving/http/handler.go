// Package httphandler is the HTTP driving adapter serving the REST API.
package httphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ericfisherdev/gitpulse/internal/application"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	statsSvc *application.StatsService
	syncSvc  *application.SyncService
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(statsSvc *application.StatsService, syncSvc *application.SyncService, logger *slog.Logger) *Handler {
	return &Handler{
		statsSvc: statsSvc,
		syncSvc:  syncSvc,
		logger:   logger,
	}
}

// NewRouter creates a chi router with all routes registered and wrapped with
// the standard middleware stack.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(func(next http.Handler) http.Handler { return loggingMiddleware(logger, next) })
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/orgs/{org}/stats", h.OrgStats)
		r.Get("/sync/status", h.SyncStatus)
		r.Post("/sync", h.TriggerSync)
		r.Get("/health", h.Health)
	})

	return r
}

// OrgStats returns the repositories of an organization with their commits,
// issues, and pull requests, plus the contributor aggregate. The optional
// repos query parameter restricts the result to a comma-separated name set;
// the optional window parameter names a recency window for commit filtering.
func (h *Handler) OrgStats(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	window := r.URL.Query().Get("window")

	var repoNames []string
	if raw := r.URL.Query().Get("repos"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				repoNames = append(repoNames, name)
			}
		}
	}

	result, err := h.statsSvc.OrgStats(r.Context(), org, repoNames, window)
	if err != nil {
		h.logger.Error("failed to compute org stats", "org", org, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toOrgStatsResponse(org, window, result))
}

// SyncStatus returns a snapshot of the current or most recent sync run.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSyncStatusResponse(h.syncSvc.Status()))
}

// TriggerSync starts a sync run in the background. Returns 409 if a run is
// already in progress.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if err := h.syncSvc.TriggerSync(); err != nil {
		if errors.Is(err, application.ErrSyncAlreadyRunning) {
			writeError(w, http.StatusConflict, "a sync run is already in progress")
			return
		}
		h.logger.Error("failed to trigger sync", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusAccepted, toSyncStatusResponse(h.syncSvc.Status()))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
