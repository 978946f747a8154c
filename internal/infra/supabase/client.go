// Package supabase provides a client for the Supabase PostgREST API.
// It is the data backend for every CRM collection.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/infra/resilience"
	"github.com/boddenberg/agency-crm-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

const serviceName = "supabase"

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

var _ port.RecordStore = (*Client)(nil)

// NewClient creates a Supabase client. The anon or service key is sent both
// as apikey and as bearer token.
func NewClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// doRequest executes an authenticated request to Supabase PostgREST.
// A nil body with a nil error means the store answered with no content.
func (c *Client) doRequest(ctx context.Context, method, path string, payload any, prefer string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", method, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, &statusError{Method: method, Status: resp.StatusCode, Body: string(body)}
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}

// statusError is a non-2xx answer from PostgREST.
type statusError struct {
	Method string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase %s returned %d: %s", e.Method, e.Status, e.Body)
}

// SelectAll fetches every row of table. Reads are retried with backoff.
func (c *Client) SelectAll(ctx context.Context, table string) ([]port.Record, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SelectAll")
	defer span.End()
	span.SetAttributes(attribute.String("db.table", table))

	var rows []port.Record

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, table+"?select=*", nil, "")
			if err != nil {
				return retryable(err)
			}
			rows, err = decodeRows(body)
			return err
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, c.wrap(table, err)
	}

	span.SetAttributes(attribute.Int("db.rows", len(rows)))
	return rows, nil
}

// Ping checks that the REST endpoint answers with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, err := c.doRequest(ctx, http.MethodGet, "", nil, "")
	if err != nil {
		var se *statusError
		// the root path answers 404 on some deployments; it still proves the key is accepted
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			return nil
		}
		return &domain.ErrExternalService{Service: serviceName, Err: err}
	}
	return nil
}

// wrap turns breaker and transport failures into domain errors.
func (c *Client) wrap(table string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: serviceName}
	}
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return err
	}
	return &domain.ErrExternalService{Service: serviceName + "/" + table, Err: err}
}

// retryable stops retries on client errors other than 429.
func retryable(err error) error {
	var se *statusError
	if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 && se.Status != http.StatusTooManyRequests {
		return resilience.Permanent(err)
	}
	return err
}

func decodeRows(body []byte) ([]port.Record, error) {
	rows := []port.Record{}
	if len(bytes.TrimSpace(body)) == 0 {
		return rows, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

func byID(table, id string) string {
	return table + "?id=eq." + url.QueryEscape(id)
}
