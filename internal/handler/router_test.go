package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/handler"
	"github.com/boddenberg/agency-crm-go/internal/infra/export"
	"github.com/boddenberg/agency-crm-go/internal/infra/memstore"
	"github.com/boddenberg/agency-crm-go/internal/infra/observability"
	"github.com/boddenberg/agency-crm-go/internal/port"
	"github.com/boddenberg/agency-crm-go/internal/service"
)

func newWorkspace(t *testing.T) (*service.Workspace, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	store.Seed(domain.TableClients, port.Record{"id": "c1", "name": "Ana", "company": "Padaria", "status": "Active"})
	store.Seed(domain.TableDemands, port.Record{"id": "d1", "client_id": "c1", "title": "Post", "service": "Postagens", "due_date": "2024-03-20", "status": "Pending"})
	store.Seed(domain.TableLeads, port.Record{"id": "l1", "company": "Acme", "stage": "Prospectado"})

	ws := service.NewWorkspace(service.WorkspaceDeps{
		Store:  store,
		Now:    func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) },
		Logger: zap.NewNop(),
	})
	if err := ws.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = ws.Flush(ctx)
	})
	return ws, store
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	ws, _ := newWorkspace(t)
	return handler.NewRouter(handler.Deps{Workspace: ws, Metrics: observability.NewMetrics(), Logger: zap.NewNop()})
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var health domain.HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" || len(health.Services) != 2 {
		t.Errorf("unexpected health: %+v", health)
	}
}

func TestReadyz(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	setupMode := handler.NewRouter(handler.Deps{Logger: zap.NewNop()})
	rec = do(t, setupMode, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before setup, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSetupMode(t *testing.T) {
	setup := service.NewSetupService(domain.SetupStatus{}, nil, nil, zap.NewNop())
	router := handler.NewRouter(handler.Deps{Setup: setup, Logger: zap.NewNop()})

	rec := do(t, router, http.MethodGet, "/v1/dashboard", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "SUPABASE_URL") {
		t.Errorf("expected missing settings in body, got %s", rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/v1/setup", "")
	if !strings.Contains(rec.Body.String(), `"configured":false`) {
		t.Errorf("unexpected setup status %s", rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/v1/setup", `{"url":"https://abc.supabase.co","key":"anon"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	select {
	case <-setup.Ready():
	default:
		t.Error("setup should be ready")
	}
}

func TestAuthRequired(t *testing.T) {
	ws, _ := newWorkspace(t)
	hash, err := service.HashPassword("segredo")
	if err != nil {
		t.Fatal(err)
	}
	auth := service.NewAuthService(hash, "secret", time.Hour, zap.NewNop())
	router := handler.NewRouter(handler.Deps{Workspace: ws, Auth: auth, Logger: zap.NewNop()})

	if rec := do(t, router, http.MethodGet, "/v1/pipeline", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodPost, "/v1/auth/login", `{"password":"errada"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}

	rec := do(t, router, http.MethodPost, "/v1/auth/login", `{"password":"segredo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var login domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatal(err)
	}

	rec = do(t, router, http.MethodGet, "/v1/pipeline", "", "Authorization", "Bearer "+login.AccessToken)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}
}

func TestPipelineFlow(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/leads", `{"company":"Nova"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create lead: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var lead domain.ProspectionLead
	if err := json.Unmarshal(rec.Body.Bytes(), &lead); err != nil {
		t.Fatal(err)
	}
	if lead.Stage != domain.StageProspected {
		t.Errorf("expected stage %q, got %q", domain.StageProspected, lead.Stage)
	}

	rec = do(t, router, http.MethodPost, "/v1/leads/"+lead.ID+"/timeline", `{"note":"ligar segunda"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("timeline: expected 200, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPut, "/v1/leads/"+lead.ID+"/stage", `{"stage":"Congelado"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("move: expected 200, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/v1/pipeline", "")
	var board []domain.BoardColumn
	if err := json.Unmarshal(rec.Body.Bytes(), &board); err != nil {
		t.Fatal(err)
	}
	if len(board) != 5 || board[0].Count != 1 || board[2].Count != 1 {
		t.Errorf("unexpected board counts: %+v", board)
	}
	if len(board[2].Leads[0].Timeline) != 1 {
		t.Errorf("expected one timeline entry, got %d", len(board[2].Leads[0].Timeline))
	}
}

func TestValidationError(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodPost, "/v1/transactions", `{"description":"x","dueDate":"2024-01-01","type":"Payable"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"field":"amount"`) {
		t.Errorf("expected amount field in %s", rec.Body.String())
	}

	rec = do(t, newRouter(t), http.MethodPost, "/v1/leads", `{"company":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestNotFound(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodPost, "/v1/demands/nope/toggle", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestToggleDemand(t *testing.T) {
	ws, store := newWorkspace(t)
	router := handler.NewRouter(handler.Deps{Workspace: ws, Logger: zap.NewNop()})

	rec := do(t, router, http.MethodPost, "/v1/demands/d1/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"Done"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ws.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	if row, _ := store.Get(domain.TableDemands, "d1"); row["status"] != "Done" {
		t.Errorf("store not updated: %v", row["status"])
	}
}

func TestExport(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodGet, "/v1/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("expected a zip payload")
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "crm-2024-03-15.xlsx") {
		t.Errorf("unexpected disposition %q", cd)
	}
}

func TestSwappable(t *testing.T) {
	first := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	s := handler.NewSwappable(first)
	if rec := do(t, s, http.MethodGet, "/", ""); rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
	s.Swap(newRouter(t))
	if rec := do(t, s, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 after swap, got %d", rec.Code)
	}
}
