package domain

// ============================================================
// Store collections
// ============================================================

const (
	TableClients      = "clients"
	TableTransactions = "transactions"
	TableDemands      = "demands"
	TableEvents       = "agenda_events"
	TableLeads        = "prospection_leads"
)

// ============================================================
// Entities (application-side shape, camelCase on the wire)
// ============================================================

// Client is a company under contract with the agency.
type Client struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Company      string       `json:"company"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	ContractFile string       `json:"contractFile,omitempty"`
	Services     []ServiceTag `json:"services"`
	Status       ClientStatus `json:"status"`
	StartDate    string       `json:"startDate"`
}

// Transaction is a receivable or payable with a due date.
type Transaction struct {
	ID                string        `json:"id"`
	ClientID          string        `json:"clientId,omitempty"`
	Description       string        `json:"description"`
	Amount            float64       `json:"amount"`
	DueDate           string        `json:"dueDate"` // YYYY-MM-DD
	Status            PaymentStatus `json:"status"`
	Type              Direction     `json:"type"`
	Recurrence        Recurrence    `json:"recurrence"`
	InstallmentsTotal *int          `json:"installmentsTotal,omitempty"`
}

// Demand is a deliverable owed to a client.
type Demand struct {
	ID       string     `json:"id"`
	ClientID string     `json:"clientId"`
	Title    string     `json:"title"`
	Service  ServiceTag `json:"service"`
	DueDate  string     `json:"dueDate"`
	Status   TaskStatus `json:"status"`
}

// AgendaEvent is a scheduled meeting, visit or follow-up.
type AgendaEvent struct {
	ID          string     `json:"id"`
	ClientID    string     `json:"clientId,omitempty"`
	Title       string     `json:"title"`
	Type        EventType  `json:"type"`
	Date        string     `json:"date"`
	Time        string     `json:"time"` // HH:MM
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Modality    Modality   `json:"modality"`
}

// TimelineActivity is a dated note on a lead. Timelines are kept most-recent-first.
type TimelineActivity struct {
	Date string `json:"date"`
	Note string `json:"note"`
	Type string `json:"type,omitempty"`
}

// ProspectionLead is a company being pursued before it becomes a client.
type ProspectionLead struct {
	ID            string             `json:"id"`
	Company       string             `json:"company"`
	Phone         string             `json:"phone"`
	Email         string             `json:"email,omitempty"`
	Stage         Stage              `json:"stage"`
	CreatedAt     string             `json:"createdAt"`
	DecisionMaker string             `json:"decisionMaker,omitempty"`
	Source        string             `json:"source,omitempty"`
	InstagramLink string             `json:"instagramLink,omitempty"`
	GoogleLink    string             `json:"googleLink,omitempty"`
	ProposalValue float64            `json:"proposalValue"`
	Timeline      []TimelineActivity `json:"timeline"`
}
