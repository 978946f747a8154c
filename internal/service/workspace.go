// Package service provides the business logic layer (use cases).
// Workspace holds the single shared CRM state: every screen reads from it
// and every mutation goes through one of its entry points, which then
// persists the change to the remote store.
package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/format"
	"github.com/boddenberg/agency-crm-go/internal/infra/observability"
	"github.com/boddenberg/agency-crm-go/internal/infra/resilience"
	"github.com/boddenberg/agency-crm-go/internal/mapper"
	"github.com/boddenberg/agency-crm-go/internal/port"
)

var wsTracer = otel.Tracer("service/workspace")

const (
	defaultWriteTimeout   = 10 * time.Second
	defaultMaxConcurrency = 8
)

// Store operations, used as metric and log labels.
const (
	opInsert = "insert"
	opUpdate = "update"
	opDelete = "delete"
)

// WorkspaceDeps groups the collaborators of a Workspace. Publisher,
// Reporter and Cache are optional.
type WorkspaceDeps struct {
	Store      port.RecordStore
	Publisher  port.BoardPublisher
	Reporter   port.FailureReporter
	Cache      port.LoadingCache[*domain.DashboardSummary]
	Metrics    *observability.Metrics
	Resilience resilience.Config
	Location   *time.Location
	Now        func() time.Time
	Origin     string
	Logger     *zap.Logger
}

type state struct {
	clients      []domain.Client
	transactions []domain.Transaction
	demands      []domain.Demand
	events       []domain.AgendaEvent
	leads        []domain.ProspectionLead
}

// Workspace is the in-memory application state plus its persistence rules:
// creates and edits wait for the store, toggles, stage moves and deletes
// apply locally first and persist in the background without rollback.
type Workspace struct {
	store     port.RecordStore
	publisher port.BoardPublisher
	reporter  port.FailureReporter
	cache     port.LoadingCache[*domain.DashboardSummary]
	mapper    *mapper.Mapper
	metrics   *observability.Metrics
	bulkhead  *resilience.Bulkhead
	timeout   time.Duration
	now       func() time.Time
	origin    string
	logger    *zap.Logger

	mu       sync.RWMutex
	st       state
	revision uint64
	loadedAt time.Time

	writes sync.WaitGroup
}

// NewWorkspace creates an empty workspace. Call Load to fill it.
func NewWorkspace(d WorkspaceDeps) *Workspace {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().In(loc) }
	}
	timeout := d.Resilience.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	maxConc := d.Resilience.MaxConcurrency
	if maxConc <= 0 {
		maxConc = defaultMaxConcurrency
	}
	origin := d.Origin
	if origin == "" {
		origin = uuid.NewString()
	}
	metrics := d.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Workspace{
		store:     d.Store,
		publisher: d.Publisher,
		reporter:  d.Reporter,
		cache:     d.Cache,
		mapper:    &mapper.Mapper{Now: now},
		metrics:   metrics,
		bulkhead:  resilience.NewBulkhead(maxConc),
		timeout:   timeout,
		now:       now,
		origin:    origin,
		logger:    logger,
		st:        emptyState(),
	}
}

func emptyState() state {
	return state{
		clients:      []domain.Client{},
		transactions: []domain.Transaction{},
		demands:      []domain.Demand{},
		events:       []domain.AgendaEvent{},
		leads:        []domain.ProspectionLead{},
	}
}

// ============================================================
// Load — full resync from the store
// ============================================================

// Load fetches the five collections concurrently and replaces the local
// state. On any failure the previous state is kept.
func (w *Workspace) Load(ctx context.Context) error {
	ctx, span := wsTracer.Start(ctx, "Workspace.Load")
	defer span.End()

	start := time.Now()
	var clients, txs, demands, events, leads []port.Record

	g, gCtx := errgroup.WithContext(ctx)
	fetch := func(table string, dst *[]port.Record) {
		g.Go(func() error {
			rows, err := w.store.SelectAll(gCtx, table)
			if err != nil {
				return fmt.Errorf("load %s: %w", table, err)
			}
			*dst = rows
			return nil
		})
	}
	fetch(domain.TableClients, &clients)
	fetch(domain.TableTransactions, &txs)
	fetch(domain.TableDemands, &demands)
	fetch(domain.TableEvents, &events)
	fetch(domain.TableLeads, &leads)

	err := g.Wait()
	w.metrics.IncrStateLoad(err)
	if err != nil {
		span.RecordError(err)
		w.logger.Error("workspace: load failed, keeping previous state", zap.Error(err))
		return err
	}

	next := emptyState()
	for _, r := range clients {
		next.clients = append(next.clients, w.mapper.Client(r))
	}
	for _, r := range txs {
		next.transactions = append(next.transactions, w.mapper.Transaction(r))
	}
	for _, r := range demands {
		next.demands = append(next.demands, w.mapper.Demand(r))
	}
	for _, r := range events {
		next.events = append(next.events, w.mapper.Event(r))
	}
	for _, r := range leads {
		next.leads = append(next.leads, w.mapper.Lead(r))
	}

	w.mu.Lock()
	w.st = next
	w.revision++
	w.loadedAt = w.now()
	rev := w.revision
	w.mu.Unlock()

	span.SetAttributes(attribute.Int64("workspace.revision", int64(rev)))
	w.metrics.RecordRequestDuration("workspace.load", time.Since(start))
	w.logger.Info("workspace loaded",
		zap.Int("clients", len(next.clients)),
		zap.Int("transactions", len(next.transactions)),
		zap.Int("demands", len(next.demands)),
		zap.Int("events", len(next.events)),
		zap.Int("leads", len(next.leads)),
		zap.Uint64("revision", rev),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// ============================================================
// State access
// ============================================================

// Revision increases on every local change and every reload.
func (w *Workspace) Revision() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.revision
}

// LoadedAt is the time of the last successful Load.
func (w *Workspace) LoadedAt() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loadedAt
}

// Origin identifies this instance in published board events.
func (w *Workspace) Origin() string { return w.origin }

// Ping checks the backing store when it supports it.
func (w *Workspace) Ping(ctx context.Context) error {
	if p, ok := w.store.(port.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// SyncMetrics reports write health for the sync endpoint.
func (w *Workspace) SyncMetrics() *domain.SyncMetrics {
	w.mu.RLock()
	rev, loaded := w.revision, w.loadedAt
	w.mu.RUnlock()
	return w.metrics.GetSyncSnapshot(rev, loaded)
}

func (w *Workspace) snapshot() state {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return state{
		clients:      slices.Clone(w.st.clients),
		transactions: slices.Clone(w.st.transactions),
		demands:      slices.Clone(w.st.demands),
		events:       slices.Clone(w.st.events),
		leads:        slices.Clone(w.st.leads),
	}
}

// mutate runs fn under the write lock and bumps the revision when fn succeeds.
func (w *Workspace) mutate(fn func(st *state) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := fn(&w.st); err != nil {
		return err
	}
	w.revision++
	return nil
}

// ============================================================
// Persistence
// ============================================================

// confirm runs a write the caller waits for. Failures are returned as-is.
func (w *Workspace) confirm(ctx context.Context, table, op string, write func(ctx context.Context) (port.Record, error)) (port.Record, error) {
	start := time.Now()
	row, err := write(ctx)
	w.metrics.RecordRemoteWrite(table, op, time.Since(start), err)
	if err != nil {
		w.logger.Error("remote write failed",
			zap.String("table", table),
			zap.String("op", op),
			zap.Error(err),
		)
		return nil, err
	}
	return row, nil
}

// persist sends a write in the background. The local state has already
// changed; a failure is logged, counted and reported, never reverted or
// retried. after runs only when the write succeeded.
func (w *Workspace) persist(ctx context.Context, table, op, id string, write func(ctx context.Context) error, after func(ctx context.Context)) {
	bg := context.WithoutCancel(ctx)

	w.writes.Add(1)
	w.metrics.WriteStarted()
	go func() {
		defer w.writes.Done()
		defer w.metrics.WriteFinished()

		ctx, cancel := context.WithTimeout(bg, w.timeout)
		defer cancel()

		if err := w.bulkhead.Acquire(ctx); err != nil {
			w.writeFailed(ctx, table, op, id, fmt.Errorf("waiting for write slot: %w", err))
			return
		}
		defer w.bulkhead.Release()

		start := time.Now()
		err := write(ctx)
		w.metrics.RecordRemoteWrite(table, op, time.Since(start), err)
		if err != nil {
			w.writeFailed(ctx, table, op, id, err)
			return
		}
		if after != nil {
			after(ctx)
		}
	}()
}

func (w *Workspace) writeFailed(ctx context.Context, table, op, id string, err error) {
	w.metrics.IncrOptimisticFailure(table, op)
	w.logger.Error("background write failed, local state kept",
		zap.String("table", table),
		zap.String("op", op),
		zap.String("id", id),
		zap.Error(err),
	)
	if w.reporter != nil {
		w.reporter.Report(ctx, err, map[string]string{"table": table, "op": op, "id": id})
	}
}

// patch is the common optimistic update: send a partial row for id.
func (w *Workspace) patch(ctx context.Context, table, id string, fields port.Record, after func(ctx context.Context)) {
	w.persist(ctx, table, opUpdate, id, func(ctx context.Context) error {
		_, err := w.store.Update(ctx, table, id, fields)
		return err
	}, after)
}

// remove is the common optimistic delete.
func (w *Workspace) remove(ctx context.Context, table, id string, after func(ctx context.Context)) {
	w.persist(ctx, table, opDelete, id, func(ctx context.Context) error {
		return w.store.Delete(ctx, table, id)
	}, after)
}

// Flush waits for background writes to finish or ctx to end.
func (w *Workspace) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.writes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Today is the current local calendar day, YYYY-MM-DD.
func (w *Workspace) Today() string {
	return format.Today(w.now())
}

func notFound(resource, id string) error {
	return &domain.ErrNotFound{Resource: resource, ID: id}
}
