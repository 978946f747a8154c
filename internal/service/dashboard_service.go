package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/format"
)

var dashboardTracer = otel.Tracer("service/dashboard")

const (
	dashboardCache        = "dashboard"
	dashboardDemandsLimit = 10
)

// Dashboard returns the home screen figures. Results are cached per state
// revision and calendar day, so any local change or reload invalidates them.
func (w *Workspace) Dashboard(ctx context.Context) (*domain.DashboardSummary, error) {
	ctx, span := dashboardTracer.Start(ctx, "Workspace.Dashboard")
	defer span.End()

	if w.cache == nil {
		return w.buildDashboard(), nil
	}

	key := fmt.Sprintf("dashboard:%d:%s", w.Revision(), w.Today())
	if cached, ok := w.cache.Get(key); ok {
		w.metrics.IncrCacheHit(dashboardCache)
		return cached, nil
	}
	w.metrics.IncrCacheMiss(dashboardCache)
	return w.cache.GetOrLoad(ctx, key, func(context.Context) (*domain.DashboardSummary, error) {
		return w.buildDashboard(), nil
	})
}

func (w *Workspace) buildDashboard() *domain.DashboardSummary {
	st := w.snapshot()
	now := w.now()
	today := format.Today(now)
	month := format.Month(now)

	sum := &domain.DashboardSummary{
		Today:          today,
		PendingDemands: pendingDemandItems(st, now, dashboardDemandsLimit),
		TodayEvents:    []domain.AgendaEvent{},
	}
	for _, c := range st.clients {
		if c.Status == domain.ClientActive {
			sum.ActiveClients++
		}
	}
	for _, t := range st.transactions {
		if t.Type == domain.Receivable && t.Status == domain.PaymentPaid && strings.HasPrefix(t.DueDate, month) {
			sum.MonthlyRevenue += t.Amount
		}
	}
	sum.MonthlyRevenueFmt = format.Currency(sum.MonthlyRevenue)
	for _, l := range st.leads {
		if l.Stage == domain.StageMeetingScheduled {
			sum.MeetingsScheduled++
		}
	}
	for _, e := range st.events {
		if e.Date == today {
			sum.TodayEvents = append(sum.TodayEvents, e)
		}
	}
	return sum
}
