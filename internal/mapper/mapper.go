// Package mapper converts between persisted snake_case records and the
// domain values the services work with. Mapping into the domain never
// fails: missing or malformed fields fall back to defaults.
package mapper

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/format"
)

// Record is a row as returned by the store.
type Record = map[string]any

// DefaultDescription is used for transactions stored without one.
const DefaultDescription = "Sem descrição"

// Mapper carries the clock used for date defaults.
type Mapper struct {
	Now func() time.Time
}

func (m *Mapper) today() string {
	if m == nil || m.Now == nil {
		return format.Today(time.Now())
	}
	return format.Today(m.Now())
}

// ============================================================
// Record -> domain
// ============================================================

func (m *Mapper) Client(r Record) domain.Client {
	services := []domain.ServiceTag{}
	for _, v := range list(r["services"]) {
		if s, ok := v.(string); ok {
			services = append(services, domain.ServiceTag(s))
		}
	}
	return domain.Client{
		ID:           str(r["id"]),
		Name:         str(r["name"]),
		Company:      str(r["company"]),
		Email:        str(r["email"]),
		Phone:        str(r["phone"]),
		ContractFile: str(r["contract_file"]),
		Services:     services,
		Status:       domain.ClientStatus(str(r["status"])),
		StartDate:    str(r["start_date"]),
	}
}

func (m *Mapper) Transaction(r Record) domain.Transaction {
	tx := domain.Transaction{
		ID:          str(r["id"]),
		ClientID:    str(r["client_id"]),
		Description: orDefault(str(r["description"]), DefaultDescription),
		Amount:      num(r["amount"]),
		DueDate:     orDefault(str(r["due_date"]), m.today()),
		Status:      domain.PaymentStatus(orDefault(str(r["status"]), string(domain.PaymentPending))),
		Type:        domain.Direction(orDefault(str(r["type"]), string(domain.Payable))),
		Recurrence:  domain.Recurrence(orDefault(str(r["recurrence"]), string(domain.RecurrenceOneTime))),
	}
	if n := int(num(r["installments_total"])); n > 0 {
		tx.InstallmentsTotal = &n
	}
	return tx
}

func (m *Mapper) Demand(r Record) domain.Demand {
	return domain.Demand{
		ID:       str(r["id"]),
		ClientID: str(r["client_id"]),
		Title:    str(r["title"]),
		Service:  domain.ServiceTag(str(r["service"])),
		DueDate:  str(r["due_date"]),
		Status:   domain.TaskStatus(orDefault(str(r["status"]), string(domain.TaskPending))),
	}
}

func (m *Mapper) Event(r Record) domain.AgendaEvent {
	return domain.AgendaEvent{
		ID:          str(r["id"]),
		ClientID:    str(r["client_id"]),
		Title:       str(r["title"]),
		Type:        domain.EventType(str(r["type"])),
		Date:        str(r["date"]),
		Time:        clock(str(r["time"])),
		Description: str(r["description"]),
		Status:      domain.TaskStatus(orDefault(str(r["status"]), string(domain.TaskPending))),
		Modality:    domain.Modality(orDefault(str(r["modality"]), string(domain.ModalityOnline))),
	}
}

func (m *Mapper) Lead(r Record) domain.ProspectionLead {
	timeline := []domain.TimelineActivity{}
	for _, v := range list(r["timeline"]) {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		timeline = append(timeline, domain.TimelineActivity{
			Date: str(entry["date"]),
			Note: str(entry["note"]),
			Type: str(entry["type"]),
		})
	}
	return domain.ProspectionLead{
		ID:            str(r["id"]),
		Company:       str(r["company"]),
		Phone:         str(r["phone"]),
		Email:         str(r["email"]),
		Stage:         domain.Stage(str(r["stage"])),
		CreatedAt:     str(r["created_at"]),
		DecisionMaker: str(r["decision_maker"]),
		Source:        str(r["source"]),
		InstagramLink: str(r["instagram_link"]),
		GoogleLink:    str(r["google_link"]),
		ProposalValue: num(r["proposal_value"]),
		Timeline:      timeline,
	}
}

// ============================================================
// domain -> Record (insert / update payloads, id excluded)
// ============================================================

func (m *Mapper) ClientRow(c domain.Client) Record {
	services := make([]string, 0, len(c.Services))
	for _, s := range c.Services {
		services = append(services, string(s))
	}
	return Record{
		"name":          c.Name,
		"company":       c.Company,
		"email":         c.Email,
		"phone":         c.Phone,
		"contract_file": nullable(c.ContractFile),
		"services":      services,
		"status":        string(c.Status),
		"start_date":    c.StartDate,
	}
}

// TransactionRow links a client only to receivables and sends an
// installment count only for installment series.
func (m *Mapper) TransactionRow(tx domain.Transaction) Record {
	row := Record{
		"client_id":          nil,
		"description":        tx.Description,
		"amount":             tx.Amount,
		"due_date":           tx.DueDate,
		"status":             string(tx.Status),
		"type":               string(tx.Type),
		"recurrence":         string(tx.Recurrence),
		"installments_total": nil,
	}
	if tx.Type == domain.Receivable && tx.ClientID != "" {
		row["client_id"] = tx.ClientID
	}
	if tx.Recurrence == domain.RecurrenceInstallments && tx.InstallmentsTotal != nil {
		row["installments_total"] = *tx.InstallmentsTotal
	}
	return row
}

func (m *Mapper) DemandRow(d domain.Demand) Record {
	return Record{
		"client_id": d.ClientID,
		"title":     d.Title,
		"service":   string(d.Service),
		"due_date":  d.DueDate,
		"status":    string(d.Status),
	}
}

func (m *Mapper) EventRow(e domain.AgendaEvent) Record {
	return Record{
		"client_id":   nullable(e.ClientID),
		"title":       e.Title,
		"type":        string(e.Type),
		"date":        e.Date,
		"time":        e.Time,
		"description": e.Description,
		"status":      string(e.Status),
		"modality":    string(e.Modality),
	}
}

// LeadRow omits created_at so the store stamps it on insert.
func (m *Mapper) LeadRow(l domain.ProspectionLead) Record {
	return Record{
		"company":        l.Company,
		"decision_maker": l.DecisionMaker,
		"phone":          l.Phone,
		"email":          l.Email,
		"stage":          string(l.Stage),
		"source":         l.Source,
		"google_link":    l.GoogleLink,
		"instagram_link": l.InstagramLink,
		"proposal_value": l.ProposalValue,
		"timeline":       TimelineRow(l.Timeline),
	}
}

// TimelineRow encodes a timeline for a partial update.
func TimelineRow(entries []domain.TimelineActivity) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		entry := map[string]any{"date": e.Date, "note": e.Note}
		if e.Type != "" {
			entry["type"] = e.Type
		}
		out = append(out, entry)
	}
	return out
}

// ============================================================
// Lenient field readers
// ============================================================

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	}
	return ""
}

// num accepts numbers or numeric strings. A string is read up to its first
// non-numeric character, so "150.5 reais" yields 150.5. Anything else is 0.
func num(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		f, _ = t.Float64()
	case string:
		f = leadingFloat(t)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func leadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	end, seenDigit, seenDot := 0, false, false
scan:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
		case (r == '-' || r == '+') && i == 0:
		case r == '.' && !seenDot:
			seenDot = true
		default:
			break scan
		}
		end = i + 1
	}
	if !seenDigit {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0
	}
	return f
}

func list(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}

func clock(s string) string {
	if len(s) > 5 {
		return s[:5]
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
