package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/mapper"
	"github.com/boddenberg/agency-crm-go/internal/port"
)

var pipelineTracer = otel.Tracer("service/pipeline")

// ============================================================
// Board
// ============================================================

// Board returns one column per stage in the fixed order. Leads keep their
// stored order inside a column and counts are derived from the cards.
func (w *Workspace) Board(ctx context.Context) []domain.BoardColumn {
	_, span := pipelineTracer.Start(ctx, "Workspace.Board")
	defer span.End()

	leads := w.snapshot().leads
	cols := make([]domain.BoardColumn, 0, len(domain.Stages))
	for _, stage := range domain.Stages {
		col := domain.BoardColumn{
			Stage: stage,
			Won:   stage.Won(),
			Lost:  stage.Lost(),
			Leads: leadsIn(leads, stage),
		}
		col.Count = len(col.Leads)
		if next, ok := stage.AdvanceTarget(); ok {
			col.AdvanceTo = next
		}
		cols = append(cols, col)
	}
	return cols
}

// LeadsByStage returns the leads currently in stage.
func (w *Workspace) LeadsByStage(ctx context.Context, stage domain.Stage) ([]domain.ProspectionLead, error) {
	_, span := pipelineTracer.Start(ctx, "Workspace.LeadsByStage")
	defer span.End()
	span.SetAttributes(attribute.String("lead.stage", string(stage)))

	if !stage.Valid() {
		return nil, &domain.ErrValidation{Field: "stage", Message: "valor não permitido: " + string(stage)}
	}
	return leadsIn(w.snapshot().leads, stage), nil
}

// GetLead returns a single lead.
func (w *Workspace) GetLead(ctx context.Context, id string) (*domain.ProspectionLead, error) {
	_, span := pipelineTracer.Start(ctx, "Workspace.GetLead")
	defer span.End()

	l, ok := w.findLead(id)
	if !ok {
		return nil, notFound("lead", id)
	}
	return &l, nil
}

func leadsIn(leads []domain.ProspectionLead, stage domain.Stage) []domain.ProspectionLead {
	out := []domain.ProspectionLead{}
	for _, l := range leads {
		if l.Stage == stage {
			out = append(out, l)
		}
	}
	return out
}

// ============================================================
// Lead records
// ============================================================

// CreateLead stores a new lead in the first column.
func (w *Workspace) CreateLead(ctx context.Context, req *domain.LeadRequest) (*domain.ProspectionLead, error) {
	ctx, span := pipelineTracer.Start(ctx, "Workspace.CreateLead")
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	l := leadFromRequest(req)
	l.Stage = domain.StageProspected
	if l.Timeline == nil {
		l.Timeline = []domain.TimelineActivity{}
	}

	row, err := w.confirm(ctx, domain.TableLeads, opInsert, func(ctx context.Context) (port.Record, error) {
		return w.store.Insert(ctx, domain.TableLeads, w.mapper.LeadRow(l))
	})
	if err != nil {
		return nil, err
	}

	created := w.mapper.Lead(row)
	_ = w.mutate(func(st *state) error {
		st.leads = append(st.leads, created)
		return nil
	})
	w.logger.Info("lead created", zap.String("lead_id", created.ID), zap.String("company", created.Company))
	w.publish(ctx, domain.BoardEventLeadCreated, created.ID, "", created.Stage)
	return &created, nil
}

// UpdateLead replaces the editable fields of a lead. The stage is never
// changed here, and the timeline is kept when the request omits it.
func (w *Workspace) UpdateLead(ctx context.Context, id string, req *domain.LeadRequest) (*domain.ProspectionLead, error) {
	ctx, span := pipelineTracer.Start(ctx, "Workspace.UpdateLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", id))

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	current, ok := w.findLead(id)
	if !ok {
		return nil, notFound("lead", id)
	}

	l := leadFromRequest(req)
	l.ID = id
	l.Stage = current.Stage
	l.CreatedAt = current.CreatedAt
	if l.Timeline == nil {
		l.Timeline = current.Timeline
	}

	if _, err := w.confirm(ctx, domain.TableLeads, opUpdate, func(ctx context.Context) (port.Record, error) {
		return w.store.Update(ctx, domain.TableLeads, id, w.mapper.LeadRow(l))
	}); err != nil {
		return nil, err
	}

	err := w.mutate(func(st *state) error {
		i := slices.IndexFunc(st.leads, func(x domain.ProspectionLead) bool { return x.ID == id })
		if i < 0 {
			return notFound("lead", id)
		}
		// a stage move may have landed while the edit was in flight
		l.Stage = st.leads[i].Stage
		st.leads[i] = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteLead removes a lead locally and deletes it in the background.
func (w *Workspace) DeleteLead(ctx context.Context, id string) error {
	ctx, span := pipelineTracer.Start(ctx, "Workspace.DeleteLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", id))

	var stage domain.Stage
	err := w.mutate(func(st *state) error {
		i := slices.IndexFunc(st.leads, func(l domain.ProspectionLead) bool { return l.ID == id })
		if i < 0 {
			return notFound("lead", id)
		}
		stage = st.leads[i].Stage
		st.leads = slices.Delete(slices.Clone(st.leads), i, i+1)
		return nil
	})
	if err != nil {
		return err
	}

	w.remove(ctx, domain.TableLeads, id, func(ctx context.Context) {
		w.publish(ctx, domain.BoardEventLeadDeleted, id, stage, "")
	})
	return nil
}

// ============================================================
// Stage changes
// ============================================================

// MoveLead puts a lead in target, whatever its current stage.
func (w *Workspace) MoveLead(ctx context.Context, id string, target domain.Stage) (*domain.ProspectionLead, error) {
	ctx, span := pipelineTracer.Start(ctx, "Workspace.MoveLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", id), attribute.String("lead.target", string(target)))

	if err := validateRequest(&domain.StageRequest{Stage: target}); err != nil {
		return nil, err
	}
	return w.moveLead(ctx, id, target, false)
}

// DropLead handles a card dropped onto a column. Dropping it onto the
// column it already sits in changes nothing and writes nothing.
func (w *Workspace) DropLead(ctx context.Context, id string, target domain.Stage) (*domain.ProspectionLead, error) {
	ctx, span := pipelineTracer.Start(ctx, "Workspace.DropLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", id), attribute.String("lead.target", string(target)))

	if err := validateRequest(&domain.StageRequest{Stage: target}); err != nil {
		return nil, err
	}
	return w.moveLead(ctx, id, target, true)
}

// AdvanceLead follows the card's shortcut button to the next stage.
func (w *Workspace) AdvanceLead(ctx context.Context, id string) (*domain.ProspectionLead, error) {
	ctx, span := pipelineTracer.Start(ctx, "Workspace.AdvanceLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", id))

	l, ok := w.findLead(id)
	if !ok {
		return nil, notFound("lead", id)
	}
	next, ok := l.Stage.AdvanceTarget()
	if !ok {
		return nil, &domain.ErrValidation{
			Field:   "stage",
			Message: fmt.Sprintf("a etapa %q não tem próxima etapa", l.Stage),
		}
	}
	return w.moveLead(ctx, id, next, false)
}

func (w *Workspace) moveLead(ctx context.Context, id string, target domain.Stage, skipSame bool) (*domain.ProspectionLead, error) {
	var (
		from    domain.Stage
		updated domain.ProspectionLead
		same    bool
	)
	err := w.mutate(func(st *state) error {
		i := slices.IndexFunc(st.leads, func(l domain.ProspectionLead) bool { return l.ID == id })
		if i < 0 {
			return notFound("lead", id)
		}
		from = st.leads[i].Stage
		if skipSame && from == target {
			same = true
			updated = st.leads[i]
			return nil
		}
		st.leads[i].Stage = target
		updated = st.leads[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if same {
		return &updated, nil
	}

	w.logger.Debug("lead moved",
		zap.String("lead_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	w.patch(ctx, domain.TableLeads, id, port.Record{"stage": string(target)}, func(ctx context.Context) {
		w.metrics.IncrBoardTransition(from, target)
		w.publish(ctx, domain.BoardEventStageChanged, id, from, target)
	})
	return &updated, nil
}

// ============================================================
// Timeline and meetings
// ============================================================

// AddTimelineNote puts a note at the top of the lead's timeline.
func (w *Workspace) AddTimelineNote(ctx context.Context, id string, req *domain.TimelineNoteRequest) (*domain.ProspectionLead, error) {
	ctx, span := pipelineTracer.Start(ctx, "Workspace.AddTimelineNote")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", id))

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	entry := domain.TimelineActivity{
		Date: req.Date,
		Note: strings.TrimSpace(req.Note),
		Type: domain.TimelineNoteType,
	}
	if entry.Date == "" {
		entry.Date = w.Today()
	}

	var updated domain.ProspectionLead
	err := w.mutate(func(st *state) error {
		i := slices.IndexFunc(st.leads, func(l domain.ProspectionLead) bool { return l.ID == id })
		if i < 0 {
			return notFound("lead", id)
		}
		timeline := make([]domain.TimelineActivity, 0, len(st.leads[i].Timeline)+1)
		timeline = append(timeline, entry)
		timeline = append(timeline, st.leads[i].Timeline...)
		st.leads[i].Timeline = timeline
		updated = st.leads[i]
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.patch(ctx, domain.TableLeads, id, port.Record{"timeline": mapper.TimelineRow(updated.Timeline)}, nil)
	return &updated, nil
}

// ScheduleMeeting books a meeting with the lead on the agenda.
func (w *Workspace) ScheduleMeeting(ctx context.Context, id string, req *domain.ScheduleRequest) (*domain.AgendaEvent, error) {
	ctx, span := pipelineTracer.Start(ctx, "Workspace.ScheduleMeeting")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", id))

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	l, ok := w.findLead(id)
	if !ok {
		return nil, notFound("lead", id)
	}

	contact := l.DecisionMaker
	if contact == "" {
		contact = "N/A"
	}
	modality := req.Modality
	if modality == "" {
		modality = domain.ModalityOnline
	}
	return w.insertEvent(ctx, domain.AgendaEvent{
		Title:       "Reunião - " + l.Company,
		Type:        domain.EventMeeting,
		Date:        req.Date,
		Time:        req.Time,
		Description: fmt.Sprintf("Agendado via Prospecção.\nContato: %s\nTel: %s", contact, l.Phone),
		Status:      domain.TaskPending,
		Modality:    modality,
	})
}

// ============================================================
// Helpers
// ============================================================

func (w *Workspace) findLead(id string) (domain.ProspectionLead, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	i := slices.IndexFunc(w.st.leads, func(l domain.ProspectionLead) bool { return l.ID == id })
	if i < 0 {
		return domain.ProspectionLead{}, false
	}
	return w.st.leads[i], true
}

// publish notifies other instances. Publishing is best effort.
func (w *Workspace) publish(ctx context.Context, kind, leadID string, from, to domain.Stage) {
	if w.publisher == nil {
		return
	}
	evt := domain.BoardEvent{
		ID:         uuid.NewString(),
		Origin:     w.origin,
		Kind:       kind,
		LeadID:     leadID,
		From:       from,
		To:         to,
		OccurredAt: w.now().UTC().Format(time.RFC3339),
	}
	if err := w.publisher.Publish(ctx, evt); err != nil {
		w.logger.Warn("board event not published",
			zap.String("kind", kind),
			zap.String("lead_id", leadID),
			zap.Error(err),
		)
	}
}

func leadFromRequest(req *domain.LeadRequest) domain.ProspectionLead {
	var timeline []domain.TimelineActivity
	if req.Timeline != nil {
		timeline = slices.Clone(req.Timeline)
	}
	return domain.ProspectionLead{
		Company:       strings.TrimSpace(req.Company),
		Phone:         strings.TrimSpace(req.Phone),
		Email:         strings.TrimSpace(req.Email),
		DecisionMaker: strings.TrimSpace(req.DecisionMaker),
		Source:        req.Source,
		InstagramLink: req.InstagramLink,
		GoogleLink:    req.GoogleLink,
		ProposalValue: req.ProposalValue,
		Timeline:      timeline,
	}
}
