package domain

// ============================================================
// Screen compositions served by the API
// ============================================================

// DashboardSummary backs the home screen.
type DashboardSummary struct {
	Today             string        `json:"today"`
	ActiveClients     int           `json:"activeClients"`
	MonthlyRevenue    float64       `json:"monthlyRevenue"`
	MonthlyRevenueFmt string        `json:"monthlyRevenueFormatted"`
	MeetingsScheduled int           `json:"meetingsScheduled"`
	PendingDemands    []DemandItem  `json:"pendingDemands"`
	TodayEvents       []AgendaEvent `json:"todayEvents"`
}

// DemandItem is a demand annotated for display.
type DemandItem struct {
	Demand
	ClientCompany string `json:"clientCompany,omitempty"`
	DueDateFmt    string `json:"dueDateFormatted"`
	DaysOverdue   int    `json:"daysOverdue"`
}

// TransactionRow is a transaction annotated for the financial table.
type TransactionRow struct {
	Transaction
	ClientCompany string `json:"clientCompany,omitempty"`
	AmountFmt     string `json:"amountFormatted"`
	DueDateFmt    string `json:"dueDateFormatted"`
	DaysOverdue   int    `json:"daysOverdue"`
	Overdue       bool   `json:"overdue"`
}

// FinancialSummary totals one direction.
type FinancialSummary struct {
	Direction    Direction        `json:"direction"`
	Rows         []TransactionRow `json:"rows"`
	TotalPending float64          `json:"totalPending"`
	TotalPaid    float64          `json:"totalPaid"`
	Forecast     []ForecastEntry  `json:"forecast"`
}

// ForecastEntry is the pending amount due on one date.
type ForecastEntry struct {
	Date     string  `json:"date"`
	Total    float64 `json:"total"`
	DateFmt  string  `json:"dateFormatted"`
	TotalFmt string  `json:"totalFormatted"`
}

// AgendaDay groups pending events sharing a date.
type AgendaDay struct {
	Date   string        `json:"date"`
	Label  string        `json:"label"`
	Events []AgendaEvent `json:"events"`
}

// ClientDetail is a client with its demands ordered by due date.
type ClientDetail struct {
	Client
	PhoneFmt string       `json:"phoneFormatted"`
	Demands  []DemandItem `json:"demands"`
}
