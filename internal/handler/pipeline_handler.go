package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/service"
)

// ============================================================
// Board
// ============================================================

func boardHandler(ws *service.Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/pipeline")
		defer span.End()

		writeJSON(w, http.StatusOK, ws.Board(ctx))
	}
}

// listLeadsHandler filters by ?stage= when given.
func listLeadsHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads")
		defer span.End()

		stage := r.URL.Query().Get("stage")
		if stage == "" {
			all := []domain.ProspectionLead{}
			for _, col := range ws.Board(ctx) {
				all = append(all, col.Leads...)
			}
			writeJSON(w, http.StatusOK, domain.ListResponse[domain.ProspectionLead]{Data: all, Total: len(all)})
			return
		}
		leads, err := ws.LeadsByStage(ctx, domain.Stage(stage))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.ProspectionLead]{Data: leads, Total: len(leads)})
	}
}

// ============================================================
// Lead records
// ============================================================

func getLeadHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads/{leadId}")
		defer span.End()

		l, err := ws.GetLead(ctx, chi.URLParam(r, "leadId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func createLeadHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads")
		defer span.End()

		var req domain.LeadRequest
		if !decodeBody(w, r, &req) {
			return
		}
		l, err := ws.CreateLead(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, l)
	}
}

func updateLeadHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/leads/{leadId}")
		defer span.End()

		var req domain.LeadRequest
		if !decodeBody(w, r, &req) {
			return
		}
		l, err := ws.UpdateLead(ctx, chi.URLParam(r, "leadId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func deleteLeadHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/leads/{leadId}")
		defer span.End()

		if err := ws.DeleteLead(ctx, chi.URLParam(r, "leadId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Stage changes
// ============================================================

func moveLeadHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/leads/{leadId}/stage")
		defer span.End()

		var req domain.StageRequest
		if !decodeBody(w, r, &req) {
			return
		}
		l, err := ws.MoveLead(ctx, chi.URLParam(r, "leadId"), req.Stage)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func dropLeadHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads/{leadId}/drop")
		defer span.End()

		var req domain.StageRequest
		if !decodeBody(w, r, &req) {
			return
		}
		l, err := ws.DropLead(ctx, chi.URLParam(r, "leadId"), req.Stage)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func advanceLeadHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads/{leadId}/advance")
		defer span.End()

		l, err := ws.AdvanceLead(ctx, chi.URLParam(r, "leadId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

// ============================================================
// Timeline & meetings
// ============================================================

func timelineNoteHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads/{leadId}/timeline")
		defer span.End()

		var req domain.TimelineNoteRequest
		if !decodeBody(w, r, &req) {
			return
		}
		l, err := ws.AddTimelineNote(ctx, chi.URLParam(r, "leadId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func scheduleMeetingHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads/{leadId}/meeting")
		defer span.End()

		var req domain.ScheduleRequest
		if !decodeBody(w, r, &req) {
			return
		}
		e, err := ws.ScheduleMeeting(ctx, chi.URLParam(r, "leadId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}
