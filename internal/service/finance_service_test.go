package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/infra/memstore"
)

func TestBuildForecast(t *testing.T) {
	txs := []domain.Transaction{
		{DueDate: "2024-01-06", Amount: 20, Type: domain.Receivable, Status: domain.PaymentPending},
		{DueDate: "2024-01-05", Amount: 100, Type: domain.Receivable, Status: domain.PaymentPending},
		{DueDate: "2024-01-05", Amount: 50, Type: domain.Receivable, Status: domain.PaymentPending},
		{DueDate: "2024-01-05", Amount: 999, Type: domain.Receivable, Status: domain.PaymentPaid},
		{DueDate: "2024-01-04", Amount: 70, Type: domain.Payable, Status: domain.PaymentPending},
	}

	got := BuildForecast(txs, domain.Receivable)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-05", got[0].Date)
	assert.Equal(t, 150.0, got[0].Total)
	assert.Equal(t, "05/01/2024", got[0].DateFmt)
	assert.Equal(t, "R$\u00a0150,00", got[0].TotalFmt)
	assert.Equal(t, "2024-01-06", got[1].Date)
	assert.Equal(t, 20.0, got[1].Total)

	assert.Empty(t, BuildForecast(nil, domain.Payable))
}

func TestFinancial_RowsAndTotals(t *testing.T) {
	env := newTestEnv(t)
	seedCRM(env.store)
	env.load(t)

	sum, err := env.ws.Financial(context.Background(), domain.Receivable)
	require.NoError(t, err)
	require.Len(t, sum.Rows, 2)

	assert.Equal(t, "t1", sum.Rows[0].ID)
	assert.False(t, sum.Rows[0].Overdue, "paid records are never overdue")
	assert.Equal(t, "Padaria Pão Quente", sum.Rows[0].ClientCompany)

	assert.Equal(t, "t2", sum.Rows[1].ID)
	assert.True(t, sum.Rows[1].Overdue)
	assert.Equal(t, 5, sum.Rows[1].DaysOverdue)
	assert.Equal(t, "R$\u00a020,00", sum.Rows[1].AmountFmt)

	assert.Equal(t, 150.0, sum.TotalPaid)
	assert.Equal(t, 20.0, sum.TotalPending)
	require.Len(t, sum.Forecast, 1)
	assert.Equal(t, "2024-03-10", sum.Forecast[0].Date)

	_, err = env.ws.Financial(context.Background(), domain.Direction("Both"))
	var ve *domain.ErrValidation
	assert.ErrorAs(t, err, &ve)
}

func TestCreateTransaction_PayableDropsClient(t *testing.T) {
	env := newTestEnv(t)
	seedCRM(env.store)
	env.load(t)

	amount := 300.0
	total := 3
	tx, err := env.ws.CreateTransaction(context.Background(), &domain.TransactionRequest{
		ClientID:          "c1",
		Description:       "Equipamento",
		Amount:            &amount,
		DueDate:           "2024-04-01",
		Type:              domain.Payable,
		Recurrence:        domain.RecurrenceFixed,
		InstallmentsTotal: &total,
	})
	require.NoError(t, err)
	assert.Empty(t, tx.ClientID)
	assert.Nil(t, tx.InstallmentsTotal)
	assert.Equal(t, domain.PaymentPending, tx.Status)

	row, ok := env.store.Get(domain.TableTransactions, tx.ID)
	require.True(t, ok)
	assert.Nil(t, row["client_id"])
	assert.Nil(t, row["installments_total"])
}

func TestCreateTransaction_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.load(t)

	negative := -1.0
	tests := []struct {
		name  string
		req   domain.TransactionRequest
		field string
	}{
		{"missing amount", domain.TransactionRequest{Description: "x", DueDate: "2024-01-01", Type: domain.Payable}, "amount"},
		{"negative amount", domain.TransactionRequest{Description: "x", Amount: &negative, DueDate: "2024-01-01", Type: domain.Payable}, "amount"},
		{"bad date", domain.TransactionRequest{Description: "x", Amount: new(float64), DueDate: "01/01/2024", Type: domain.Payable}, "dueDate"},
		{"bad type", domain.TransactionRequest{Description: "x", Amount: new(float64), DueDate: "2024-01-01", Type: "Both"}, "type"},
		{"missing description", domain.TransactionRequest{Amount: new(float64), DueDate: "2024-01-01", Type: domain.Payable}, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ws.CreateTransaction(context.Background(), &tt.req)
			var ve *domain.ErrValidation
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Zero(t, env.ops.Calls(memstore.OpInsert))
}

func TestCreateTransaction_RemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	seedCRM(env.store)
	env.load(t)
	env.ops.fail[memstore.OpInsert] = &domain.ErrExternalService{Service: "supabase", Err: errors.New("502")}

	amount := 10.0
	_, err := env.ws.CreateTransaction(context.Background(), &domain.TransactionRequest{
		Description: "x", Amount: &amount, DueDate: "2024-01-01", Type: domain.Payable,
	})
	var ext *domain.ErrExternalService
	require.ErrorAs(t, err, &ext)

	sum, err := env.ws.Financial(context.Background(), domain.Payable)
	require.NoError(t, err)
	assert.Len(t, sum.Rows, 1)
}

func TestUpdateTransaction(t *testing.T) {
	env := newTestEnv(t)
	seedCRM(env.store)
	env.load(t)

	amount := 175.5
	total := 4
	tx, err := env.ws.UpdateTransaction(context.Background(), "t2", &domain.TransactionRequest{
		ClientID:          "c1",
		Description:       "Setup revisado",
		Amount:            &amount,
		DueDate:           "2024-03-12",
		Type:              domain.Receivable,
		Recurrence:        domain.RecurrenceInstallments,
		InstallmentsTotal: &total,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, tx.Status)
	require.NotNil(t, tx.InstallmentsTotal)
	assert.Equal(t, 4, *tx.InstallmentsTotal)

	row, _ := env.store.Get(domain.TableTransactions, "t2")
	assert.Equal(t, "Setup revisado", row["description"])
	assert.Equal(t, 175.5, row["amount"])
	assert.Equal(t, "c1", row["client_id"])

	_, err = env.ws.UpdateTransaction(context.Background(), "nope", &domain.TransactionRequest{
		Description: "x", Amount: &amount, DueDate: "2024-01-01", Type: domain.Payable,
	})
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestDeleteTransaction(t *testing.T) {
	env := newTestEnv(t)
	seedCRM(env.store)
	env.load(t)

	require.NoError(t, env.ws.DeleteTransaction(context.Background(), "t3"))
	sum, err := env.ws.Financial(context.Background(), domain.Payable)
	require.NoError(t, err)
	assert.Empty(t, sum.Rows)
	env.flush(t)

	_, ok := env.store.Get(domain.TableTransactions, "t3")
	assert.False(t, ok)
}

func TestExportWorkbook(t *testing.T) {
	env := newTestEnv(t)
	seedCRM(env.store)
	env.load(t)

	var buf bytes.Buffer
	require.NoError(t, env.ws.ExportWorkbook(context.Background(), &buf))
	// XLSX is a zip archive
	assert.Equal(t, []byte("PK"), buf.Bytes()[:2])
}
