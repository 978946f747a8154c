package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/service"
)

func agendaHandler(ws *service.Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agenda")
		defer span.End()

		days := ws.Agenda(ctx)
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.AgendaDay]{Data: days, Total: len(days)})
	}
}

func listEventsHandler(ws *service.Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/events")
		defer span.End()

		events := ws.ListEvents(ctx)
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.AgendaEvent]{Data: events, Total: len(events)})
	}
}

func createEventHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/events")
		defer span.End()

		var req domain.EventRequest
		if !decodeBody(w, r, &req) {
			return
		}
		e, err := ws.CreateEvent(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func updateEventHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/events/{eventId}")
		defer span.End()

		var req domain.EventRequest
		if !decodeBody(w, r, &req) {
			return
		}
		e, err := ws.UpdateEvent(ctx, chi.URLParam(r, "eventId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func deleteEventHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/events/{eventId}")
		defer span.End()

		if err := ws.DeleteEvent(ctx, chi.URLParam(r, "eventId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func completeEventHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/events/{eventId}/complete")
		defer span.End()

		e, err := ws.CompleteEvent(ctx, chi.URLParam(r, "eventId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func toggleEventHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/events/{eventId}/toggle")
		defer span.End()

		e, err := ws.ToggleEvent(ctx, chi.URLParam(r, "eventId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}
