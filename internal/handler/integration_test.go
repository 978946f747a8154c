package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/handler"
	"github.com/boddenberg/agency-crm-go/internal/infra/cache"
	"github.com/boddenberg/agency-crm-go/internal/infra/observability"
	"github.com/boddenberg/agency-crm-go/internal/infra/resilience"
	"github.com/boddenberg/agency-crm-go/internal/infra/supabase"
	"github.com/boddenberg/agency-crm-go/internal/service"
)

// fakePostgREST serves the handful of PostgREST calls the store client makes.
type fakePostgREST struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	nextID int
	writes []string
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("apikey") != "test-key" {
		http.Error(w, `{"message":"invalid key"}`, http.StatusUnauthorized)
		return
	}
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")

	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		if table == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		rows := f.tables[table]
		if rows == nil {
			rows = []map[string]any{}
		}
		json.NewEncoder(w).Encode(rows)

	case http.MethodPost:
		var rows []map[string]any
		json.NewDecoder(r.Body).Decode(&rows)
		for _, row := range rows {
			f.nextID++
			row["id"] = fmt.Sprintf("srv-%d", f.nextID)
			row["created_at"] = "2024-03-15T10:00:00+00:00"
			f.tables[table] = append(f.tables[table], row)
		}
		f.writes = append(f.writes, "insert "+table)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(rows)

	case http.MethodPatch:
		var patch map[string]any
		json.NewDecoder(r.Body).Decode(&patch)
		f.writes = append(f.writes, "update "+table+" "+id)
		for _, row := range f.tables[table] {
			if row["id"] == id {
				for k, v := range patch {
					row[k] = v
				}
				json.NewEncoder(w).Encode([]map[string]any{row})
				return
			}
		}
		json.NewEncoder(w).Encode([]map[string]any{})

	case http.MethodDelete:
		f.writes = append(f.writes, "delete "+table+" "+id)
		kept := f.tables[table][:0]
		for _, row := range f.tables[table] {
			if row["id"] != id {
				kept = append(kept, row)
			}
		}
		f.tables[table] = kept
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakePostgREST) row(table, id string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.tables[table] {
		if row["id"] == id {
			return row
		}
	}
	return nil
}

// TestIntegration_FullFlow drives the API against a mock Supabase through the real store client.
func TestIntegration_FullFlow(t *testing.T) {
	// --- Mock Supabase ---
	fake := &fakePostgREST{tables: map[string][]map[string]any{
		domain.TableClients: {
			{"id": "c1", "name": "Ana", "company": "Padaria Pão Quente", "status": "Active", "services": []any{"Tráfego"}},
		},
		domain.TableLeads: {
			{"id": "l1", "company": "Acme", "stage": "Prospectado", "phone": "11 4000-0000", "timeline": []any{}},
		},
		domain.TableTransactions: {
			{"id": "t1", "client_id": "c1", "description": "Mensalidade", "amount": "1500", "due_date": "2024-03-10", "status": "Pending", "type": "Receivable"},
		},
	}}
	server := httptest.NewServer(fake)
	defer server.Close()

	// --- Build workspace ---
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 4, WriteTimeout: 2 * time.Second}
	store := supabase.NewClient(&http.Client{Timeout: 5 * time.Second}, server.URL, "test-key", resilience.NewCircuitBreaker("test", logger), cfg, logger)
	dashCache := cache.New[*domain.DashboardSummary](time.Minute)
	defer dashCache.Close()

	ws := service.NewWorkspace(service.WorkspaceDeps{
		Store:      store,
		Cache:      dashCache,
		Metrics:    metrics,
		Resilience: cfg,
		Now:        func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) },
		Logger:     logger,
	})
	ctx := context.Background()
	if err := ws.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	router := handler.NewRouter(handler.Deps{Workspace: ws, Metrics: metrics, Logger: logger})

	// --- Create a lead (confirmed write) ---
	rec := do(t, router, http.MethodPost, "/v1/leads", `{"company":"Nova Ótica","decisionMaker":"Rui"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var lead domain.ProspectionLead
	if err := json.Unmarshal(rec.Body.Bytes(), &lead); err != nil {
		t.Fatalf("failed to decode lead: %v", err)
	}
	if !strings.HasPrefix(lead.ID, "srv-") {
		t.Errorf("expected store-assigned id, got %q", lead.ID)
	}
	if fake.row(domain.TableLeads, lead.ID)["stage"] != "Prospectado" {
		t.Errorf("expected stored stage Prospectado, got %v", fake.row(domain.TableLeads, lead.ID)["stage"])
	}

	// --- Advance both leads (optimistic writes) ---
	for _, id := range []string{"l1", lead.ID} {
		rec = do(t, router, http.MethodPost, "/v1/leads/"+id+"/advance", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("advance %s: expected 200, got %d", id, rec.Code)
		}
	}

	// --- Toggle the receivable ---
	rec = do(t, router, http.MethodPost, "/v1/transactions/t1/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d", rec.Code)
	}

	flushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := ws.Flush(flushCtx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if got := fake.row(domain.TableLeads, "l1")["stage"]; got != "Marcou Reunião" {
		t.Errorf("expected l1 persisted as Marcou Reunião, got %v", got)
	}
	if got := fake.row(domain.TableTransactions, "t1")["status"]; got != "Paid" {
		t.Errorf("expected t1 persisted as Paid, got %v", got)
	}

	// --- Dashboard reflects the local state ---
	rec = do(t, router, http.MethodGet, "/v1/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", rec.Code)
	}
	var dash domain.DashboardSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &dash); err != nil {
		t.Fatalf("failed to decode dashboard: %v", err)
	}
	if dash.MeetingsScheduled != 2 {
		t.Errorf("expected 2 leads in meeting stage, got %d", dash.MeetingsScheduled)
	}
	if dash.ActiveClients != 1 {
		t.Errorf("expected 1 active client, got %d", dash.ActiveClients)
	}

	// --- Reload from the store keeps what was persisted ---
	rec = do(t, router, http.MethodPost, "/v1/sync", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("sync: expected 200, got %d", rec.Code)
	}
	board := ws.Board(ctx)
	if board[1].Count != 2 {
		t.Errorf("expected 2 leads in %q after reload, got %d", board[1].Stage, board[1].Count)
	}
}

func TestIntegration_RejectedKey(t *testing.T) {
	fake := &fakePostgREST{tables: map[string][]map[string]any{}}
	server := httptest.NewServer(fake)
	defer server.Close()

	logger := zap.NewNop()
	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxConcurrency: 1}
	store := supabase.NewClient(&http.Client{Timeout: time.Second}, server.URL, "wrong", resilience.NewCircuitBreaker("test-rejected", logger), cfg, logger)

	if err := store.Ping(context.Background()); err == nil {
		t.Fatal("expected ping to fail with a rejected key")
	}

	ws := service.NewWorkspace(service.WorkspaceDeps{Store: store, Resilience: cfg, Logger: logger})
	router := handler.NewRouter(handler.Deps{Workspace: ws, Logger: logger})

	rec := do(t, router, http.MethodPost, "/v1/sync", "")
	// the breaker may trip while the five tables load concurrently
	if rec.Code != http.StatusBadGateway && rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 502 or 503, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, router, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected readyz 503 before a successful load, got %d", rec.Code)
	}
}
