package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/boddenberg/agency-crm-go/internal/domain"
)

func TestWrite_ProducesReadableWorkbook(t *testing.T) {
	three := 3
	receivable := []domain.TransactionRow{{
		Transaction: domain.Transaction{
			Description: "Gestão de tráfego", Amount: 1500, Status: domain.PaymentPending,
			Recurrence: domain.RecurrenceInstallments, InstallmentsTotal: &three,
		},
		ClientCompany: "Padaria Central",
		DueDateFmt:    "05/01/2024",
		DaysOverdue:   4,
	}}
	payable := []domain.TransactionRow{{
		Transaction: domain.Transaction{Description: "Hospedagem", Amount: 89.9, Status: domain.PaymentPaid, Recurrence: domain.RecurrenceFixed},
		DueDateFmt:  "10/01/2024",
	}}
	leads := []domain.ProspectionLead{{
		Company: "Academia Forte", Stage: domain.StageMeetingScheduled, ProposalValue: 2000,
		Timeline: []domain.TimelineActivity{{Date: "2024-01-02", Note: "retornar sexta"}, {Date: "2024-01-01", Note: "primeiro contato"}},
	}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, receivable, payable, leads))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetReceivable, SheetPayable, SheetPipeline}, f.GetSheetList())

	rows, err := f.GetRows(SheetReceivable)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, financeHeaders, rows[0])
	assert.Equal(t, "Gestão de tráfego", rows[1][0])
	assert.Equal(t, "Padaria Central", rows[1][1])
	assert.Equal(t, "3", rows[1][6])
	assert.Equal(t, "4", rows[1][7])

	raw, err := f.GetCellValue(SheetReceivable, "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1500", raw)

	rows, err = f.GetRows(SheetPipeline)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Academia Forte", rows[1][0])
	assert.Equal(t, "Marcou Reunião", rows[1][4])
	assert.Equal(t, "retornar sexta", rows[1][8])
}

func TestWrite_EmptyCollections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetPayable)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
