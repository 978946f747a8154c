package handler

import (
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/infra/observability"
	"github.com/boddenberg/agency-crm-go/internal/port"
	"github.com/boddenberg/agency-crm-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Deps are the collaborators of the router. Workspace is nil while the
// service waits for first-run setup; data routes then answer 503.
type Deps struct {
	Workspace *service.Workspace
	Auth      *service.AuthService
	Setup     *service.SetupService
	Metrics   *observability.Metrics
	// Extra dependencies reported by /healthz, e.g. redis.
	Checks map[string]port.Pinger
	Logger *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := d.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	ws := d.Workspace

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestIDForReports)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(ws, d.Checks, logger))
	r.Get("/readyz", readyzHandler(ws))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		// first-run setup
		r.Get("/setup", setupStatusHandler(d.Setup))
		r.Post("/setup", setupHandler(d.Setup, logger))

		r.Post("/auth/login", loginHandler(d.Auth, logger))

		r.Group(func(r chi.Router) {
			if d.Auth != nil && d.Auth.Enabled() {
				r.Use(JWTAuthMiddleware(d.Auth, logger))
			}
			if ws == nil {
				r.Handle("/*", notConfiguredHandler(d.Setup, logger))
				return
			}

			r.Get("/dashboard", dashboardHandler(ws, logger))

			// Clients & demands
			r.Get("/clients", listClientsHandler(ws))
			r.Post("/clients", createClientHandler(ws, logger))
			r.Get("/clients/{clientId}", getClientHandler(ws, logger))
			r.Get("/demands", pendingDemandsHandler(ws))
			r.Post("/demands", createDemandHandler(ws, logger))
			r.Post("/demands/{demandId}/toggle", toggleDemandHandler(ws, logger))

			// Financial
			r.Get("/transactions", listTransactionsHandler(ws, logger))
			r.Post("/transactions", createTransactionHandler(ws, logger))
			r.Put("/transactions/{transactionId}", updateTransactionHandler(ws, logger))
			r.Delete("/transactions/{transactionId}", deleteTransactionHandler(ws, logger))
			r.Post("/transactions/{transactionId}/toggle", toggleTransactionHandler(ws, logger))
			r.Get("/forecast", forecastHandler(ws, logger))
			r.Get("/export", exportHandler(ws, logger))

			// Agenda
			r.Get("/agenda", agendaHandler(ws))
			r.Get("/events", listEventsHandler(ws))
			r.Post("/events", createEventHandler(ws, logger))
			r.Put("/events/{eventId}", updateEventHandler(ws, logger))
			r.Delete("/events/{eventId}", deleteEventHandler(ws, logger))
			r.Post("/events/{eventId}/complete", completeEventHandler(ws, logger))
			r.Post("/events/{eventId}/toggle", toggleEventHandler(ws, logger))

			// Prospecting pipeline
			r.Get("/pipeline", boardHandler(ws))
			r.Get("/leads", listLeadsHandler(ws, logger))
			r.Post("/leads", createLeadHandler(ws, logger))
			r.Get("/leads/{leadId}", getLeadHandler(ws, logger))
			r.Put("/leads/{leadId}", updateLeadHandler(ws, logger))
			r.Delete("/leads/{leadId}", deleteLeadHandler(ws, logger))
			r.Put("/leads/{leadId}/stage", moveLeadHandler(ws, logger))
			r.Post("/leads/{leadId}/drop", dropLeadHandler(ws, logger))
			r.Post("/leads/{leadId}/advance", advanceLeadHandler(ws, logger))
			r.Post("/leads/{leadId}/timeline", timelineNoteHandler(ws, logger))
			r.Post("/leads/{leadId}/meeting", scheduleMeetingHandler(ws, logger))

			// Sync
			r.Post("/sync", syncHandler(ws, logger))
			r.Get("/metrics/sync", syncMetricsHandler(ws))
		})
	})

	return r
}

func notConfiguredHandler(setup *service.SetupService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := &domain.ErrNotConfigured{Missing: []string{"SUPABASE_URL", "SUPABASE_KEY"}}
		if setup != nil && setup.Status().Configured {
			// credentials arrived, the workspace is still loading
			err.Missing = nil
		}
		handleServiceError(w, err, logger)
	}
}

// Swappable lets main replace the whole router once setup completes.
type Swappable struct {
	current atomic.Pointer[http.Handler]
}

// NewSwappable starts serving h.
func NewSwappable(h http.Handler) *Swappable {
	s := &Swappable{}
	s.Swap(h)
	return s
}

// Swap makes h serve every following request.
func (s *Swappable) Swap(h http.Handler) { s.current.Store(&h) }

func (s *Swappable) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.current.Load()).ServeHTTP(w, r)
}
