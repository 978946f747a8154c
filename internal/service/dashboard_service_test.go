package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/agency-crm-go/internal/domain"
)

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	seedCRM(env.store)
	env.load(t)

	sum, err := env.ws.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-03-15", sum.Today)
	assert.Equal(t, 1, sum.ActiveClients)
	assert.Equal(t, 150.0, sum.MonthlyRevenue)
	assert.Equal(t, "R$\u00a0150,00", sum.MonthlyRevenueFmt)
	assert.Equal(t, 1, sum.MeetingsScheduled)
	require.Len(t, sum.PendingDemands, 2)
	assert.Equal(t, "Padaria Pão Quente", sum.PendingDemands[0].ClientCompany)
	assert.Equal(t, 5, sum.PendingDemands[1].DaysOverdue)
	assert.Len(t, sum.TodayEvents, 2)
}

func TestDashboard_CachedUntilStateChanges(t *testing.T) {
	env := newTestEnv(t)
	seedCRM(env.store)
	env.load(t)
	ctx := context.Background()

	first, err := env.ws.Dashboard(ctx)
	require.NoError(t, err)
	second, err := env.ws.Dashboard(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.InDelta(t, 0.5, env.ws.SyncMetrics().CacheHitRate, 1e-9)

	_, err = env.ws.MoveLead(ctx, "l1", domain.StageMeetingScheduled)
	require.NoError(t, err)

	third, err := env.ws.Dashboard(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, third.MeetingsScheduled)
	env.flush(t)
}

func TestDashboard_PendingDemandsCapped(t *testing.T) {
	env := newTestEnv(t)
	seedCRM(env.store)
	env.load(t)

	for i := 0; i < 12; i++ {
		_, err := env.ws.AddDemand(context.Background(), &domain.DemandRequest{
			ClientID: "c1", Title: "Post", Service: domain.ServicePosts, DueDate: "2024-04-01",
		})
		require.NoError(t, err)
	}

	sum, err := env.ws.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Len(t, sum.PendingDemands, 10)
	assert.Len(t, env.ws.PendingDemands(context.Background()), 14)
}
