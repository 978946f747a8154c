package domain

// ============================================================
// Form payloads (validated before any remote call)
// ============================================================

// ClientRequest creates a client. Status starts Active.
type ClientRequest struct {
	Name         string       `json:"name" validate:"required"`
	Company      string       `json:"company" validate:"required"`
	Email        string       `json:"email" validate:"omitempty,email"`
	Phone        string       `json:"phone"`
	ContractFile string       `json:"contractFile"`
	Services     []ServiceTag `json:"services" validate:"dive,enum"`
}

// DemandRequest adds a deliverable to a client.
type DemandRequest struct {
	ClientID string     `json:"clientId" validate:"required"`
	Title    string     `json:"title" validate:"required"`
	Service  ServiceTag `json:"service" validate:"required,enum"`
	DueDate  string     `json:"dueDate" validate:"required,datetime=2006-01-02"`
}

// TransactionRequest creates or replaces a financial record.
type TransactionRequest struct {
	ClientID          string        `json:"clientId"`
	Description       string        `json:"description" validate:"required"`
	Amount            *float64      `json:"amount" validate:"required,gte=0"`
	DueDate           string        `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Status            PaymentStatus `json:"status" validate:"omitempty,enum"`
	Type              Direction     `json:"type" validate:"required,enum"`
	Recurrence        Recurrence    `json:"recurrence" validate:"omitempty,enum"`
	InstallmentsTotal *int          `json:"installmentsTotal" validate:"omitempty,gte=1"`
}

// EventRequest creates or replaces an agenda event.
type EventRequest struct {
	ClientID    string    `json:"clientId"`
	Title       string    `json:"title" validate:"required"`
	Type        EventType `json:"type" validate:"omitempty,enum"`
	Date        string    `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string    `json:"time" validate:"required,datetime=15:04"`
	Description string    `json:"description"`
	Modality    Modality  `json:"modality" validate:"omitempty,enum"`
}

// LeadRequest creates or edits a lead. A nil Timeline on edit keeps the stored one.
type LeadRequest struct {
	Company       string             `json:"company" validate:"required"`
	DecisionMaker string             `json:"decisionMaker"`
	Phone         string             `json:"phone"`
	Email         string             `json:"email" validate:"omitempty,email"`
	Source        string             `json:"source"`
	GoogleLink    string             `json:"googleLink" validate:"omitempty,url"`
	InstagramLink string             `json:"instagramLink" validate:"omitempty,url"`
	ProposalValue float64            `json:"proposalValue" validate:"gte=0"`
	Timeline      []TimelineActivity `json:"timeline" validate:"omitempty,dive"`
}

// TimelineNoteRequest appends a note to a lead. Date defaults to today.
type TimelineNoteRequest struct {
	Note string `json:"note" validate:"required"`
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// StageRequest moves a lead to another column.
type StageRequest struct {
	Stage Stage `json:"stage" validate:"required,enum"`
}

// ScheduleRequest books a meeting for a lead.
type ScheduleRequest struct {
	Date     string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time     string   `json:"time" validate:"required,datetime=15:04"`
	Modality Modality `json:"modality" validate:"omitempty,enum"`
}

// SetupRequest carries the store credentials collected on first run.
type SetupRequest struct {
	URL string `json:"url" validate:"required,url"`
	Key string `json:"key" validate:"required"`
}

// LoginRequest exchanges the owner password for an access token.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned by POST /v1/auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
