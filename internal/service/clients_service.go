package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/format"
	"github.com/boddenberg/agency-crm-go/internal/port"
)

var clientsTracer = otel.Tracer("service/clients")

// ============================================================
// Clients
// ============================================================

// ListClients returns clients whose company or contact name contains query,
// ignoring case and accents. An empty query returns every client.
func (w *Workspace) ListClients(ctx context.Context, query string) []domain.Client {
	_, span := clientsTracer.Start(ctx, "Workspace.ListClients")
	defer span.End()

	clients := w.snapshot().clients
	q := format.Fold(strings.TrimSpace(query))
	if q == "" {
		return clients
	}
	out := make([]domain.Client, 0, len(clients))
	for _, c := range clients {
		if strings.Contains(format.Fold(c.Company), q) || strings.Contains(format.Fold(c.Name), q) {
			out = append(out, c)
		}
	}
	span.SetAttributes(attribute.Int("clients.matched", len(out)))
	return out
}

// GetClient returns a client with its demands ordered by due date.
func (w *Workspace) GetClient(ctx context.Context, id string) (*domain.ClientDetail, error) {
	_, span := clientsTracer.Start(ctx, "Workspace.GetClient")
	defer span.End()

	st := w.snapshot()
	i := slices.IndexFunc(st.clients, func(c domain.Client) bool { return c.ID == id })
	if i < 0 {
		return nil, notFound("client", id)
	}
	c := st.clients[i]

	var demands []domain.Demand
	for _, d := range st.demands {
		if d.ClientID == id {
			demands = append(demands, d)
		}
	}
	slices.SortStableFunc(demands, func(a, b domain.Demand) int { return strings.Compare(a.DueDate, b.DueDate) })

	now := w.now()
	items := make([]domain.DemandItem, 0, len(demands))
	for _, d := range demands {
		items = append(items, demandItem(d, c.Company, now))
	}
	return &domain.ClientDetail{
		Client:   c,
		PhoneFmt: format.Phone(c.Phone),
		Demands:  items,
	}, nil
}

// CreateClient stores a new active client starting now.
func (w *Workspace) CreateClient(ctx context.Context, req *domain.ClientRequest) (*domain.Client, error) {
	ctx, span := clientsTracer.Start(ctx, "Workspace.CreateClient")
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	services := req.Services
	if services == nil {
		services = []domain.ServiceTag{}
	}
	c := domain.Client{
		Name:         strings.TrimSpace(req.Name),
		Company:      strings.TrimSpace(req.Company),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		ContractFile: req.ContractFile,
		Services:     services,
		Status:       domain.ClientActive,
		StartDate:    w.now().UTC().Format(time.RFC3339),
	}

	row, err := w.confirm(ctx, domain.TableClients, opInsert, func(ctx context.Context) (port.Record, error) {
		return w.store.Insert(ctx, domain.TableClients, w.mapper.ClientRow(c))
	})
	if err != nil {
		return nil, err
	}

	created := w.mapper.Client(row)
	_ = w.mutate(func(st *state) error {
		st.clients = append(st.clients, created)
		return nil
	})
	w.logger.Info("client created", zap.String("client_id", created.ID), zap.String("company", created.Company))
	return &created, nil
}

// ============================================================
// Demands
// ============================================================

// AddDemand creates a pending demand for an existing client.
func (w *Workspace) AddDemand(ctx context.Context, req *domain.DemandRequest) (*domain.Demand, error) {
	ctx, span := clientsTracer.Start(ctx, "Workspace.AddDemand")
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if !w.hasClient(req.ClientID) {
		return nil, notFound("client", req.ClientID)
	}

	d := domain.Demand{
		ClientID: req.ClientID,
		Title:    strings.TrimSpace(req.Title),
		Service:  req.Service,
		DueDate:  req.DueDate,
		Status:   domain.TaskPending,
	}
	row, err := w.confirm(ctx, domain.TableDemands, opInsert, func(ctx context.Context) (port.Record, error) {
		return w.store.Insert(ctx, domain.TableDemands, w.mapper.DemandRow(d))
	})
	if err != nil {
		return nil, err
	}

	created := w.mapper.Demand(row)
	_ = w.mutate(func(st *state) error {
		st.demands = append(st.demands, created)
		return nil
	})
	return &created, nil
}

// ToggleDemand flips a demand between Pending and Done. The new status is
// visible immediately; the store is updated in the background.
func (w *Workspace) ToggleDemand(ctx context.Context, id string) (*domain.Demand, error) {
	ctx, span := clientsTracer.Start(ctx, "Workspace.ToggleDemand")
	defer span.End()
	span.SetAttributes(attribute.String("demand.id", id))

	var updated domain.Demand
	err := w.mutate(func(st *state) error {
		i := slices.IndexFunc(st.demands, func(d domain.Demand) bool { return d.ID == id })
		if i < 0 {
			return notFound("demand", id)
		}
		st.demands[i].Status = st.demands[i].Status.Toggle()
		updated = st.demands[i]
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.patch(ctx, domain.TableDemands, id, port.Record{"status": string(updated.Status)}, nil)
	return &updated, nil
}

// PendingDemands lists pending demands in stored order.
func (w *Workspace) PendingDemands(ctx context.Context) []domain.DemandItem {
	_, span := clientsTracer.Start(ctx, "Workspace.PendingDemands")
	defer span.End()

	st := w.snapshot()
	return pendingDemandItems(st, w.now(), 0)
}

func (w *Workspace) hasClient(id string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.ContainsFunc(w.st.clients, func(c domain.Client) bool { return c.ID == id })
}

func pendingDemandItems(st state, now time.Time, limit int) []domain.DemandItem {
	companies := make(map[string]string, len(st.clients))
	for _, c := range st.clients {
		companies[c.ID] = c.Company
	}
	items := []domain.DemandItem{}
	for _, d := range st.demands {
		if d.Status != domain.TaskPending {
			continue
		}
		items = append(items, demandItem(d, companies[d.ClientID], now))
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items
}

func demandItem(d domain.Demand, company string, now time.Time) domain.DemandItem {
	return domain.DemandItem{
		Demand:        d,
		ClientCompany: company,
		DueDateFmt:    format.Date(d.DueDate),
		DaysOverdue:   format.DaysOverdue(d.DueDate, now),
	}
}
