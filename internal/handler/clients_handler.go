package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/service"
)

// ============================================================
// Clients
// ============================================================

func listClientsHandler(ws *service.Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients")
		defer span.End()

		clients := ws.ListClients(ctx, r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Client]{Data: clients, Total: len(clients)})
	}
}

func getClientHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clients/{clientId}")
		defer span.End()

		detail, err := ws.GetClient(ctx, chi.URLParam(r, "clientId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func createClientHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/clients")
		defer span.End()

		var req domain.ClientRequest
		if !decodeBody(w, r, &req) {
			return
		}
		c, err := ws.CreateClient(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

// ============================================================
// Demands
// ============================================================

func pendingDemandsHandler(ws *service.Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/demands")
		defer span.End()

		items := ws.PendingDemands(ctx)
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.DemandItem]{Data: items, Total: len(items)})
	}
}

func createDemandHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/demands")
		defer span.End()

		var req domain.DemandRequest
		if !decodeBody(w, r, &req) {
			return
		}
		d, err := ws.AddDemand(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, d)
	}
}

func toggleDemandHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/demands/{demandId}/toggle")
		defer span.End()

		d, err := ws.ToggleDemand(ctx, chi.URLParam(r, "demandId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}
