package domain

// Stage is a column of the prospecting board.
type Stage string

const (
	StageProspected       Stage = "Prospectado"
	StageMeetingScheduled Stage = "Marcou Reunião"
	StageFrozen           Stage = "Congelado"
	StageClosed           Stage = "Fechado"
	StageNotInterested    Stage = "Sem Interesse"
)

// Stages is the fixed column order of the board.
var Stages = []Stage{
	StageProspected,
	StageMeetingScheduled,
	StageFrozen,
	StageClosed,
	StageNotInterested,
}

func (s Stage) Valid() bool {
	switch s {
	case StageProspected, StageMeetingScheduled, StageFrozen, StageClosed, StageNotInterested:
		return true
	}
	return false
}

// Index returns the column position of s, or -1.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// AdvanceTarget is the stage offered by the card's shortcut button.
// It is a UI affordance only; any stage can move to any other stage.
func (s Stage) AdvanceTarget() (Stage, bool) {
	switch s {
	case StageProspected:
		return StageMeetingScheduled, true
	case StageMeetingScheduled:
		return StageClosed, true
	case StageFrozen, StageClosed, StageNotInterested:
		return "", false
	}
	return "", false
}

// Won and Lost drive the column highlight.
func (s Stage) Won() bool  { return s == StageClosed }
func (s Stage) Lost() bool { return s == StageNotInterested }

// TimelineNoteType is the type stamped on notes added from the lead timeline.
const TimelineNoteType = "Note"

// BoardColumn is one stage of the board with its cards.
type BoardColumn struct {
	Stage     Stage             `json:"stage"`
	Count     int               `json:"count"`
	AdvanceTo Stage             `json:"advanceTo,omitempty"`
	Won       bool              `json:"won,omitempty"`
	Lost      bool              `json:"lost,omitempty"`
	Leads     []ProspectionLead `json:"leads"`
}

// BoardEvent is broadcast after a stage change has been persisted.
type BoardEvent struct {
	ID         string `json:"id"`
	Origin     string `json:"origin"`
	Kind       string `json:"kind"`
	LeadID     string `json:"leadId"`
	From       Stage  `json:"from,omitempty"`
	To         Stage  `json:"to,omitempty"`
	OccurredAt string `json:"occurredAt"`
}

const (
	BoardEventStageChanged = "lead.stage_changed"
	BoardEventLeadCreated  = "lead.created"
	BoardEventLeadDeleted  = "lead.deleted"
)
