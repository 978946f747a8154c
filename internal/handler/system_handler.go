package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/port"
	"github.com/boddenberg/agency-crm-go/internal/service"
)

const healthCheckTimeout = 3 * time.Second

// ============================================================
// Health
// ============================================================

func healthzHandler(ws *service.Workspace, checks map[string]port.Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "crm-api", Status: "healthy", LastChecked: now},
		}
		if ws != nil {
			services = append(services, probe(ctx, "store", ws, now))
		}
		for name, p := range checks {
			services = append(services, probe(ctx, name, p, now))
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overall = "degraded"
				logger.Warn("health: dependency degraded", zap.String("service", s.Name), zap.String("error", s.Error))
			}
		}
		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall, Services: services})
	}
}

func probe(ctx context.Context, name string, p port.Pinger, now string) domain.ServiceHealth {
	start := time.Now()
	err := p.Ping(ctx)
	h := domain.ServiceHealth{
		Name:        name,
		Status:      "healthy",
		LatencyMs:   time.Since(start).Milliseconds(),
		LastChecked: now,
	}
	if err != nil {
		h.Status = "degraded"
		h.Error = err.Error()
	}
	return h
}

// readyzHandler reports ready once the workspace has loaded at least once.
func readyzHandler(ws *service.Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ws == nil || ws.LoadedAt().IsZero() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// ============================================================
// Setup & auth
// ============================================================

func setupStatusHandler(setup *service.SetupService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if setup == nil {
			writeJSON(w, http.StatusOK, domain.SetupStatus{Configured: true})
			return
		}
		writeJSON(w, http.StatusOK, setup.Status())
	}
}

func setupHandler(setup *service.SetupService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/setup")
		defer span.End()

		if setup == nil {
			writeError(w, http.StatusConflict, "store already configured")
			return
		}
		var req domain.SetupRequest
		if !decodeBody(w, r, &req) {
			return
		}
		status, err := setup.Configure(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusAccepted, status)
	}
}

func loginHandler(auth *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		if auth == nil || !auth.Enabled() {
			writeError(w, http.StatusNotFound, "login disabled")
			return
		}
		var req domain.LoginRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := auth.Login(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Dashboard & sync
// ============================================================

func dashboardHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		summary, err := ws.Dashboard(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// syncHandler reloads the whole state from the store.
func syncHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sync")
		defer span.End()

		if err := ws.Load(ctx); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ws.SyncMetrics())
	}
}

func syncMetricsHandler(ws *service.Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ws.SyncMetrics())
	}
}
