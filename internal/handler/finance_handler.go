package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/infra/export"
	"github.com/boddenberg/agency-crm-go/internal/service"
)

// direction reads ?type=, defaulting to receivables.
func direction(r *http.Request) domain.Direction {
	if v := r.URL.Query().Get("type"); v != "" {
		return domain.Direction(v)
	}
	return domain.Receivable
}

func listTransactionsHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		summary, err := ws.Financial(ctx, direction(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func forecastHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/forecast")
		defer span.End()

		summary, err := ws.Financial(ctx, direction(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.ForecastEntry]{Data: summary.Forecast, Total: len(summary.Forecast)})
	}
}

func createTransactionHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var req domain.TransactionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		tx, err := ws.CreateTransaction(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

func updateTransactionHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/transactions/{transactionId}")
		defer span.End()

		var req domain.TransactionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		tx, err := ws.UpdateTransaction(ctx, chi.URLParam(r, "transactionId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func deleteTransactionHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{transactionId}")
		defer span.End()

		if err := ws.DeleteTransaction(ctx, chi.URLParam(r, "transactionId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toggleTransactionHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/{transactionId}/toggle")
		defer span.End()

		tx, err := ws.ToggleTransaction(ctx, chi.URLParam(r, "transactionId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

// exportHandler buffers the workbook so a failure can still produce a JSON error.
func exportHandler(ws *service.Workspace, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/export")
		defer span.End()

		var buf bytes.Buffer
		if err := ws.ExportWorkbook(ctx, &buf); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.Header().Set("Content-Type", export.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="crm-%s.xlsx"`, ws.Today()))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}
