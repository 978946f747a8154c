package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SentryReporter forwards background failures to Sentry.
type SentryReporter struct {
	hub    *sentry.Hub
	logger *zap.Logger
}

// NewSentryReporter builds a reporter on its own hub. A nil client yields
// a reporter that only logs.
func NewSentryReporter(client *sentry.Client, logger *zap.Logger) *SentryReporter {
	r := &SentryReporter{logger: logger}
	if client != nil {
		r.hub = sentry.NewHub(client, sentry.NewScope())
	}
	return r
}

// NewSentryClient creates a client for dsn. Returns nil, nil when dsn is empty.
func NewSentryClient(dsn, environment, release string) (*sentry.Client, error) {
	if dsn == "" {
		return nil, nil
	}
	return sentry.NewClient(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
}

// Report captures err with tags. It never blocks on delivery.
func (r *SentryReporter) Report(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	if r.hub == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if id := ctx.Value(requestIDKey{}); id != nil {
			scope.SetTag("request_id", id.(string))
		}
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			scope.SetTag("trace_id", sc.TraceID().String())
		}
		r.hub.CaptureException(err)
	})
}

// Flush waits up to timeout for queued events.
func (r *SentryReporter) Flush(timeout time.Duration) {
	if r.hub == nil {
		return
	}
	if !r.hub.Flush(timeout) && r.logger != nil {
		r.logger.Warn("sentry: flush timed out", zap.Duration("timeout", timeout))
	}
}

type requestIDKey struct{}

// WithRequestID tags ctx so reports can be correlated with request logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}
