package service

import (
	"context"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/format"
	"github.com/boddenberg/agency-crm-go/internal/port"
)

var agendaTracer = otel.Tracer("service/agenda")

// Agenda groups the events that are not done by date, earliest first.
func (w *Workspace) Agenda(ctx context.Context) []domain.AgendaDay {
	_, span := agendaTracer.Start(ctx, "Workspace.Agenda")
	defer span.End()

	var open []domain.AgendaEvent
	for _, e := range w.snapshot().events {
		if e.Status != domain.TaskDone {
			open = append(open, e)
		}
	}
	slices.SortStableFunc(open, func(a, b domain.AgendaEvent) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.Time, b.Time)
	})

	now := w.now()
	days := []domain.AgendaDay{}
	for _, e := range open {
		if n := len(days); n > 0 && days[n-1].Date == e.Date {
			days[n-1].Events = append(days[n-1].Events, e)
			continue
		}
		days = append(days, domain.AgendaDay{
			Date:   e.Date,
			Label:  format.DayLabel(e.Date, now),
			Events: []domain.AgendaEvent{e},
		})
	}
	span.SetAttributes(attribute.Int("agenda.days", len(days)))
	return days
}

// ListEvents returns every event in stored order.
func (w *Workspace) ListEvents(ctx context.Context) []domain.AgendaEvent {
	_, span := agendaTracer.Start(ctx, "Workspace.ListEvents")
	defer span.End()
	return w.snapshot().events
}

// CreateEvent stores a new pending event.
func (w *Workspace) CreateEvent(ctx context.Context, req *domain.EventRequest) (*domain.AgendaEvent, error) {
	ctx, span := agendaTracer.Start(ctx, "Workspace.CreateEvent")
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return w.insertEvent(ctx, eventFromRequest(req))
}

// UpdateEvent replaces an event. Saving the form reopens it as Pending.
func (w *Workspace) UpdateEvent(ctx context.Context, id string, req *domain.EventRequest) (*domain.AgendaEvent, error) {
	ctx, span := agendaTracer.Start(ctx, "Workspace.UpdateEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", id))

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, ok := w.findEvent(id); !ok {
		return nil, notFound("event", id)
	}

	e := eventFromRequest(req)
	e.ID = id
	if _, err := w.confirm(ctx, domain.TableEvents, opUpdate, func(ctx context.Context) (port.Record, error) {
		return w.store.Update(ctx, domain.TableEvents, id, w.mapper.EventRow(e))
	}); err != nil {
		return nil, err
	}

	err := w.mutate(func(st *state) error {
		i := slices.IndexFunc(st.events, func(ev domain.AgendaEvent) bool { return ev.ID == id })
		if i < 0 {
			return notFound("event", id)
		}
		st.events[i] = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CompleteEvent marks an event Done optimistically.
func (w *Workspace) CompleteEvent(ctx context.Context, id string) (*domain.AgendaEvent, error) {
	ctx, span := agendaTracer.Start(ctx, "Workspace.CompleteEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", id))

	return w.setEventStatus(ctx, id, func(domain.TaskStatus) domain.TaskStatus { return domain.TaskDone })
}

// ToggleEvent flips an event between Pending and Done optimistically.
func (w *Workspace) ToggleEvent(ctx context.Context, id string) (*domain.AgendaEvent, error) {
	ctx, span := agendaTracer.Start(ctx, "Workspace.ToggleEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", id))

	return w.setEventStatus(ctx, id, domain.TaskStatus.Toggle)
}

// DeleteEvent removes an event locally and deletes it in the background.
func (w *Workspace) DeleteEvent(ctx context.Context, id string) error {
	ctx, span := agendaTracer.Start(ctx, "Workspace.DeleteEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", id))

	err := w.mutate(func(st *state) error {
		i := slices.IndexFunc(st.events, func(e domain.AgendaEvent) bool { return e.ID == id })
		if i < 0 {
			return notFound("event", id)
		}
		st.events = slices.Delete(slices.Clone(st.events), i, i+1)
		return nil
	})
	if err != nil {
		return err
	}
	w.remove(ctx, domain.TableEvents, id, nil)
	return nil
}

func (w *Workspace) setEventStatus(ctx context.Context, id string, next func(domain.TaskStatus) domain.TaskStatus) (*domain.AgendaEvent, error) {
	var updated domain.AgendaEvent
	err := w.mutate(func(st *state) error {
		i := slices.IndexFunc(st.events, func(e domain.AgendaEvent) bool { return e.ID == id })
		if i < 0 {
			return notFound("event", id)
		}
		st.events[i].Status = next(st.events[i].Status)
		updated = st.events[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	w.patch(ctx, domain.TableEvents, id, port.Record{"status": string(updated.Status)}, nil)
	return &updated, nil
}

// insertEvent is shared by the agenda form and the pipeline's meeting shortcut.
func (w *Workspace) insertEvent(ctx context.Context, e domain.AgendaEvent) (*domain.AgendaEvent, error) {
	row, err := w.confirm(ctx, domain.TableEvents, opInsert, func(ctx context.Context) (port.Record, error) {
		return w.store.Insert(ctx, domain.TableEvents, w.mapper.EventRow(e))
	})
	if err != nil {
		return nil, err
	}
	created := w.mapper.Event(row)
	_ = w.mutate(func(st *state) error {
		st.events = append(st.events, created)
		return nil
	})
	return &created, nil
}

func (w *Workspace) findEvent(id string) (domain.AgendaEvent, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	i := slices.IndexFunc(w.st.events, func(e domain.AgendaEvent) bool { return e.ID == id })
	if i < 0 {
		return domain.AgendaEvent{}, false
	}
	return w.st.events[i], true
}

func eventFromRequest(req *domain.EventRequest) domain.AgendaEvent {
	e := domain.AgendaEvent{
		ClientID:    req.ClientID,
		Title:       strings.TrimSpace(req.Title),
		Type:        req.Type,
		Date:        req.Date,
		Time:        req.Time,
		Description: req.Description,
		Status:      domain.TaskPending,
		Modality:    req.Modality,
	}
	if e.Type == "" {
		e.Type = domain.EventMeeting
	}
	if e.Modality == "" {
		e.Modality = domain.ModalityOnline
	}
	return e
}
