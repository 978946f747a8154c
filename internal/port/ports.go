// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/agency-crm-go/internal/domain"
)

// Record is a persisted row in its snake_case shape.
type Record = map[string]any

// RecordStore is the generic data access used for every collection.
// Implemented by the Supabase adapter and by the in-memory store.
type RecordStore interface {
	SelectAll(ctx context.Context, table string) ([]Record, error)
	// Insert returns the stored row, including the id and timestamps the store assigned.
	Insert(ctx context.Context, table string, row Record) (Record, error)
	// Update applies a partial row to the record with the given id and returns it.
	Update(ctx context.Context, table, id string, patch Record) (Record, error)
	Delete(ctx context.Context, table, id string) error
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// LoadingCache fills missing keys through load, collapsing concurrent loads of the same key.
type LoadingCache[T any] interface {
	Cache[T]
	GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (T, error)
}

// BoardPublisher broadcasts pipeline changes to other dashboard instances.
type BoardPublisher interface {
	Publish(ctx context.Context, evt domain.BoardEvent) error
}

// FailureReporter receives remote write failures that were not surfaced to the caller.
type FailureReporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}
