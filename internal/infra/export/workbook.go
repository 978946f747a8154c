// Package export writes the financial table and the pipeline to an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/boddenberg/agency-crm-go/internal/domain"
)

// Sheet names, in workbook order.
const (
	SheetReceivable = "A Receber"
	SheetPayable    = "A Pagar"
	SheetPipeline   = "Prospecção"
)

// ContentType is the MIME type of the generated file.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var financeHeaders = []string{"Descrição", "Cliente", "Valor", "Vencimento", "Status", "Recorrência", "Parcelas", "Dias em atraso"}

var pipelineHeaders = []string{"Empresa", "Decisor", "Telefone", "E-mail", "Etapa", "Origem", "Proposta", "Criado em", "Última nota"}

// Write renders one sheet per direction plus the pipeline and writes the
// workbook to w.
func Write(w io.Writer, receivable, payable []domain.TransactionRow, leads []domain.ProspectionLead) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", SheetReceivable); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeFinance(f, SheetReceivable, receivable, styles); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetPayable); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetPayable, err)
	}
	if err := writeFinance(f, SheetPayable, payable, styles); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetPipeline); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetPipeline, err)
	}
	if err := writePipeline(f, leads, styles); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type sheetStyles struct {
	header int
	money  int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("header style: %w", err)
	}
	moneyFmt := `"R$" #,##0.00`
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return sheetStyles{}, fmt.Errorf("money style: %w", err)
	}
	return sheetStyles{header: header, money: money}, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, st sheetStyles) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, st.header); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", lastCol, 18)
}

func writeFinance(f *excelize.File, sheet string, rows []domain.TransactionRow, st sheetStyles) error {
	if err := writeHeader(f, sheet, financeHeaders, st); err != nil {
		return fmt.Errorf("sheet %s header: %w", sheet, err)
	}
	for i, r := range rows {
		row := i + 2
		installments := any("")
		if r.InstallmentsTotal != nil {
			installments = *r.InstallmentsTotal
		}
		values := []any{
			r.Description,
			r.ClientCompany,
			r.Amount,
			r.DueDateFmt,
			string(r.Status),
			string(r.Recurrence),
			installments,
			r.DaysOverdue,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, row, err)
		}
		amountCell, _ := excelize.CoordinatesToCellName(3, row)
		if err := f.SetCellStyle(sheet, amountCell, amountCell, st.money); err != nil {
			return err
		}
	}
	return nil
}

func writePipeline(f *excelize.File, leads []domain.ProspectionLead, st sheetStyles) error {
	if err := writeHeader(f, SheetPipeline, pipelineHeaders, st); err != nil {
		return fmt.Errorf("sheet %s header: %w", SheetPipeline, err)
	}
	for i, l := range leads {
		row := i + 2
		lastNote := ""
		if len(l.Timeline) > 0 {
			lastNote = l.Timeline[0].Note
		}
		values := []any{
			l.Company,
			l.DecisionMaker,
			l.Phone,
			l.Email,
			string(l.Stage),
			l.Source,
			l.ProposalValue,
			l.CreatedAt,
			lastNote,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetPipeline, cell, &values); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", SheetPipeline, row, err)
		}
		valueCell, _ := excelize.CoordinatesToCellName(7, row)
		if err := f.SetCellStyle(SheetPipeline, valueCell, valueCell, st.money); err != nil {
			return err
		}
	}
	return nil
}
