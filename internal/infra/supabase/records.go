package supabase

import (
	"context"
	"net/http"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ============================================================
// Writes: POST, PATCH, DELETE
// Writes go through the breaker but are never retried.
// ============================================================

const preferRepresentation = "return=representation"

// Insert creates one row and returns it as stored.
func (c *Client) Insert(ctx context.Context, table string, row port.Record) (port.Record, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	res, err := c.cb.Execute(func() (any, error) {
		body, err := c.doRequest(ctx, http.MethodPost, table, []port.Record{row}, preferRepresentation)
		if err != nil {
			return nil, err
		}
		return decodeRows(body)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, c.wrap(table, err)
	}

	rows := res.([]port.Record)
	if len(rows) == 0 {
		c.logger.Warn("supabase: insert returned no representation", zap.String("table", table))
		return row, nil
	}
	return rows[0], nil
}

// Update patches the row with the given id and returns it as stored.
func (c *Client) Update(ctx context.Context, table, id string, patch port.Record) (port.Record, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Update")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table), attribute.String("db.id", id))

	res, err := c.cb.Execute(func() (any, error) {
		body, err := c.doRequest(ctx, http.MethodPatch, byID(table, id), patch, preferRepresentation)
		if err != nil {
			return nil, err
		}
		return decodeRows(body)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, c.wrap(table, err)
	}

	rows := res.([]port.Record)
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: table, ID: id}
	}
	return rows[0], nil
}

// Delete removes the row with the given id. Deleting a missing row is not an error.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table), attribute.String("db.id", id))

	_, err := c.cb.Execute(func() (any, error) {
		return c.doRequest(ctx, http.MethodDelete, byID(table, id), nil, "")
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return c.wrap(table, err)
	}
	return nil
}
