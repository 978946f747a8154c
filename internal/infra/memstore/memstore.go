// Package memstore is an in-process RecordStore. It backs the service when
// USE_SUPABASE=false and stands in for the remote store in tests.
package memstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/port"
)

// Op names a store operation seen by a Hook.
type Op string

const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Hook runs before every operation. A non-nil error fails the operation
// without touching the data.
type Hook func(ctx context.Context, op Op, table, id string) error

// Store keeps rows per table in insertion order.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]port.Record
	hook   Hook
	now    func() time.Time
}

var _ port.RecordStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		tables: make(map[string][]port.Record),
		now:    time.Now,
	}
}

// SetHook installs h, replacing any previous hook.
func (s *Store) SetHook(h Hook) {
	s.mu.Lock()
	s.hook = h
	s.mu.Unlock()
}

// Seed appends rows as-is. Rows without an id get one.
func (s *Store) Seed(table string, rows ...port.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		r = clone(r)
		if _, ok := r["id"]; !ok {
			r["id"] = uuid.NewString()
		}
		s.tables[table] = append(s.tables[table], r)
	}
}

// Get returns a copy of one row, for assertions.
func (s *Store) Get(table, id string) (port.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(table, id)
	if i < 0 {
		return nil, false
	}
	return clone(s.tables[table][i]), true
}

func (s *Store) SelectAll(ctx context.Context, table string) ([]port.Record, error) {
	if err := s.runHook(ctx, OpSelect, table, ""); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]port.Record, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, clone(r))
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, table string, row port.Record) (port.Record, error) {
	if err := s.runHook(ctx, OpInsert, table, ""); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := clone(row)
	r["id"] = uuid.NewString()
	if _, ok := r["created_at"]; !ok || r["created_at"] == nil {
		r["created_at"] = s.now().UTC().Format(time.RFC3339)
	}
	s.tables[table] = append(s.tables[table], r)
	return clone(r), nil
}

func (s *Store) Update(ctx context.Context, table, id string, patch port.Record) (port.Record, error) {
	if err := s.runHook(ctx, OpUpdate, table, id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(table, id)
	if i < 0 {
		return nil, &domain.ErrNotFound{Resource: table, ID: id}
	}
	r := s.tables[table][i]
	for k, v := range clone(patch) {
		if k == "id" {
			continue
		}
		r[k] = v
	}
	return clone(r), nil
}

func (s *Store) Delete(ctx context.Context, table, id string) error {
	if err := s.runHook(ctx, OpDelete, table, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(table, id); i >= 0 {
		rows := s.tables[table]
		s.tables[table] = append(rows[:i:i], rows[i+1:]...)
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) runHook(ctx context.Context, op Op, table, id string) error {
	s.mu.RLock()
	h := s.hook
	s.mu.RUnlock()
	if h == nil {
		return ctx.Err()
	}
	return h(ctx, op, table, id)
}

func (s *Store) index(table, id string) int {
	for i, r := range s.tables[table] {
		if rid, _ := r["id"].(string); rid == id {
			return i
		}
	}
	return -1
}

// clone deep-copies a row through JSON so callers never share nested
// slices or maps with the store, matching what a remote round trip returns.
func clone(r port.Record) port.Record {
	b, err := json.Marshal(r)
	if err != nil {
		out := make(port.Record, len(r))
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	out := port.Record{}
	_ = json.Unmarshal(b, &out)
	return out
}
