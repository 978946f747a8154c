package service

import (
	"context"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/format"
	"github.com/boddenberg/agency-crm-go/internal/infra/export"
	"github.com/boddenberg/agency-crm-go/internal/port"
)

var financeTracer = otel.Tracer("service/finance")

// ============================================================
// Forecast
// ============================================================

// BuildForecast sums the pending records of one direction per due date
// (exact string match) and returns the groups in ascending date order.
func BuildForecast(txs []domain.Transaction, direction domain.Direction) []domain.ForecastEntry {
	totals := make(map[string]float64)
	for _, t := range txs {
		if t.Type != direction || t.Status != domain.PaymentPending {
			continue
		}
		totals[t.DueDate] += t.Amount
	}

	dates := make([]string, 0, len(totals))
	for d := range totals {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]domain.ForecastEntry, 0, len(dates))
	for _, d := range dates {
		out = append(out, domain.ForecastEntry{
			Date:     d,
			Total:    totals[d],
			DateFmt:  format.Date(d),
			TotalFmt: format.Currency(totals[d]),
		})
	}
	return out
}

// ============================================================
// Transactions
// ============================================================

// Financial returns one direction's records ordered by due date with
// overdue annotations, totals and the cash-flow forecast.
func (w *Workspace) Financial(ctx context.Context, direction domain.Direction) (*domain.FinancialSummary, error) {
	_, span := financeTracer.Start(ctx, "Workspace.Financial")
	defer span.End()
	span.SetAttributes(attribute.String("finance.direction", string(direction)))

	if !direction.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "valor não permitido: " + string(direction)}
	}

	st := w.snapshot()
	rows := transactionRows(st, direction, w.now())

	summary := &domain.FinancialSummary{
		Direction: direction,
		Rows:      rows,
		Forecast:  BuildForecast(st.transactions, direction),
	}
	for _, r := range rows {
		switch r.Status {
		case domain.PaymentPaid:
			summary.TotalPaid += r.Amount
		case domain.PaymentPending:
			summary.TotalPending += r.Amount
		}
	}
	return summary, nil
}

// CreateTransaction stores a new pending record.
func (w *Workspace) CreateTransaction(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error) {
	ctx, span := financeTracer.Start(ctx, "Workspace.CreateTransaction")
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	tx := transactionFromRequest(req)
	tx.Status = domain.PaymentPending

	row, err := w.confirm(ctx, domain.TableTransactions, opInsert, func(ctx context.Context) (port.Record, error) {
		return w.store.Insert(ctx, domain.TableTransactions, w.mapper.TransactionRow(tx))
	})
	if err != nil {
		return nil, err
	}

	created := w.mapper.Transaction(row)
	_ = w.mutate(func(st *state) error {
		st.transactions = append(st.transactions, created)
		return nil
	})
	w.logger.Info("transaction created",
		zap.String("transaction_id", created.ID),
		zap.String("type", string(created.Type)),
		zap.Float64("amount", created.Amount),
	)
	return &created, nil
}

// UpdateTransaction replaces the editable fields of a record after the
// store accepts them. The status is kept unless the request sets it.
func (w *Workspace) UpdateTransaction(ctx context.Context, id string, req *domain.TransactionRequest) (*domain.Transaction, error) {
	ctx, span := financeTracer.Start(ctx, "Workspace.UpdateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	current, ok := w.findTransaction(id)
	if !ok {
		return nil, notFound("transaction", id)
	}

	tx := transactionFromRequest(req)
	tx.ID = id
	tx.Status = current.Status
	if req.Status != "" {
		tx.Status = req.Status
	}

	if _, err := w.confirm(ctx, domain.TableTransactions, opUpdate, func(ctx context.Context) (port.Record, error) {
		return w.store.Update(ctx, domain.TableTransactions, id, w.mapper.TransactionRow(tx))
	}); err != nil {
		return nil, err
	}

	err := w.mutate(func(st *state) error {
		i := slices.IndexFunc(st.transactions, func(t domain.Transaction) bool { return t.ID == id })
		if i < 0 {
			// deleted locally while the edit was in flight
			return notFound("transaction", id)
		}
		st.transactions[i] = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// ToggleTransaction flips Paid and Pending optimistically.
func (w *Workspace) ToggleTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	ctx, span := financeTracer.Start(ctx, "Workspace.ToggleTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	var updated domain.Transaction
	err := w.mutate(func(st *state) error {
		i := slices.IndexFunc(st.transactions, func(t domain.Transaction) bool { return t.ID == id })
		if i < 0 {
			return notFound("transaction", id)
		}
		st.transactions[i].Status = st.transactions[i].Status.Toggle()
		updated = st.transactions[i]
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.patch(ctx, domain.TableTransactions, id, port.Record{"status": string(updated.Status)}, nil)
	return &updated, nil
}

// DeleteTransaction removes a record locally and deletes it in the background.
func (w *Workspace) DeleteTransaction(ctx context.Context, id string) error {
	ctx, span := financeTracer.Start(ctx, "Workspace.DeleteTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("transaction.id", id))

	err := w.mutate(func(st *state) error {
		i := slices.IndexFunc(st.transactions, func(t domain.Transaction) bool { return t.ID == id })
		if i < 0 {
			return notFound("transaction", id)
		}
		st.transactions = slices.Delete(slices.Clone(st.transactions), i, i+1)
		return nil
	})
	if err != nil {
		return err
	}

	w.remove(ctx, domain.TableTransactions, id, nil)
	return nil
}

// ExportWorkbook writes both financial tables and the pipeline as XLSX.
func (w *Workspace) ExportWorkbook(ctx context.Context, out io.Writer) error {
	_, span := financeTracer.Start(ctx, "Workspace.ExportWorkbook")
	defer span.End()

	st := w.snapshot()
	now := w.now()
	return export.Write(out,
		transactionRows(st, domain.Receivable, now),
		transactionRows(st, domain.Payable, now),
		st.leads,
	)
}

func (w *Workspace) findTransaction(id string) (domain.Transaction, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	i := slices.IndexFunc(w.st.transactions, func(t domain.Transaction) bool { return t.ID == id })
	if i < 0 {
		return domain.Transaction{}, false
	}
	return w.st.transactions[i], true
}

// transactionFromRequest applies the form rules: a client only on
// receivables, an installment count only on installment series.
func transactionFromRequest(req *domain.TransactionRequest) domain.Transaction {
	tx := domain.Transaction{
		Description: strings.TrimSpace(req.Description),
		Amount:      *req.Amount,
		DueDate:     req.DueDate,
		Type:        req.Type,
		Recurrence:  req.Recurrence,
	}
	if tx.Recurrence == "" {
		tx.Recurrence = domain.RecurrenceOneTime
	}
	if tx.Type == domain.Receivable {
		tx.ClientID = req.ClientID
	}
	if tx.Recurrence == domain.RecurrenceInstallments && req.InstallmentsTotal != nil {
		n := *req.InstallmentsTotal
		tx.InstallmentsTotal = &n
	}
	return tx
}

func transactionRows(st state, direction domain.Direction, now time.Time) []domain.TransactionRow {
	companies := make(map[string]string, len(st.clients))
	for _, c := range st.clients {
		companies[c.ID] = c.Company
	}

	var txs []domain.Transaction
	for _, t := range st.transactions {
		if t.Type == direction {
			txs = append(txs, t)
		}
	}
	slices.SortStableFunc(txs, func(a, b domain.Transaction) int { return strings.Compare(a.DueDate, b.DueDate) })

	rows := make([]domain.TransactionRow, 0, len(txs))
	for _, t := range txs {
		days := format.DaysOverdue(t.DueDate, now)
		rows = append(rows, domain.TransactionRow{
			Transaction:   t,
			ClientCompany: companies[t.ClientID],
			AmountFmt:     format.Currency(t.Amount),
			DueDateFmt:    format.Date(t.DueDate),
			DaysOverdue:   days,
			Overdue:       t.Status == domain.PaymentPending && days > 0,
		})
	}
	return rows
}
