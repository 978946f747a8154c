package domain

// ============================================================
// Closed value sets persisted by the store.
// Wire strings are the labels already held in the Supabase tables.
// ============================================================

// Enum is implemented by every closed value set so validation can
// check membership without knowing the concrete type.
type Enum interface {
	Valid() bool
}

// ServiceTag is a service the agency sells to a client.
type ServiceTag string

const (
	ServiceTraffic ServiceTag = "Tráfego"
	ServiceGoogle  ServiceTag = "Google"
	ServiceVideo   ServiceTag = "Vídeo"
	ServicePosts   ServiceTag = "Postagens"
)

// ServiceTags lists every service in display order.
var ServiceTags = []ServiceTag{ServiceTraffic, ServiceGoogle, ServiceVideo, ServicePosts}

func (s ServiceTag) Valid() bool {
	switch s {
	case ServiceTraffic, ServiceGoogle, ServiceVideo, ServicePosts:
		return true
	}
	return false
}

// ClientStatus marks whether a client contract is running.
type ClientStatus string

const (
	ClientActive   ClientStatus = "Active"
	ClientInactive ClientStatus = "Inactive"
)

func (s ClientStatus) Valid() bool {
	switch s {
	case ClientActive, ClientInactive:
		return true
	}
	return false
}

// PaymentStatus is the settlement state of a transaction.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "Paid"
	PaymentPending PaymentStatus = "Pending"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPaid, PaymentPending:
		return true
	}
	return false
}

// Toggle flips Paid and Pending.
func (s PaymentStatus) Toggle() PaymentStatus {
	switch s {
	case PaymentPaid:
		return PaymentPending
	default:
		return PaymentPaid
	}
}

// Direction tells whether money comes in or goes out.
type Direction string

const (
	Receivable Direction = "Receivable"
	Payable    Direction = "Payable"
)

func (d Direction) Valid() bool {
	switch d {
	case Receivable, Payable:
		return true
	}
	return false
}

// Recurrence classifies a financial record as one-off, fixed or part of an installment series.
type Recurrence string

const (
	RecurrenceOneTime      Recurrence = "One-time"
	RecurrenceFixed        Recurrence = "Fixed"
	RecurrenceInstallments Recurrence = "Installments"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceOneTime, RecurrenceFixed, RecurrenceInstallments:
		return true
	}
	return false
}

// TaskStatus is shared by demands and agenda events.
type TaskStatus string

const (
	TaskPending TaskStatus = "Pending"
	TaskDone    TaskStatus = "Done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskDone:
		return true
	}
	return false
}

// Toggle flips Pending and Done.
func (s TaskStatus) Toggle() TaskStatus {
	switch s {
	case TaskPending:
		return TaskDone
	default:
		return TaskPending
	}
}

// EventType categorizes an agenda entry.
type EventType string

const (
	EventMeeting  EventType = "Reunião"
	EventVisit    EventType = "Visita"
	EventFollowUp EventType = "Follow-up"
	EventOther    EventType = "Outro"
)

func (t EventType) Valid() bool {
	switch t {
	case EventMeeting, EventVisit, EventFollowUp, EventOther:
		return true
	}
	return false
}

// Modality says whether an event happens remotely or on site.
type Modality string

const (
	ModalityOnline   Modality = "Online"
	ModalityInPerson Modality = "Presencial"
)

func (m Modality) Valid() bool {
	switch m {
	case ModalityOnline, ModalityInPerson:
		return true
	}
	return false
}
