package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/agency-crm-go/internal/domain"
)

// Result labels for remote writes.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds all Prometheus metrics for the CRM.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration    *prometheus.HistogramVec
	remoteWrites       *prometheus.CounterVec
	remoteWriteLatency *prometheus.HistogramVec
	optimisticFailures *prometheus.CounterVec
	stateLoads         *prometheus.CounterVec
	boardTransitions   *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	inFlight           prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crm_request_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		remoteWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_remote_writes_total",
				Help: "Writes issued to the remote store by table, operation and result.",
			},
			[]string{"table", "op", "result"},
		),
		remoteWriteLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crm_remote_write_duration_seconds",
				Help:    "Latency of remote store writes.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"table", "op"},
		),
		optimisticFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_optimistic_write_failures_total",
				Help: "Background writes that failed after the local state already changed.",
			},
			[]string{"table", "op"},
		),
		stateLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_state_loads_total",
				Help: "Full reloads of the workspace from the remote store.",
			},
			[]string{"result"},
		),
		boardTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_board_transitions_total",
				Help: "Lead stage changes by origin and target stage.",
			},
			[]string{"from", "to"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "crm_remote_writes_in_flight",
				Help: "Background writes not yet resolved.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordRemoteWrite counts one remote write and its latency.
func (m *Metrics) RecordRemoteWrite(table, op string, d time.Duration, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.remoteWrites.WithLabelValues(table, op, result).Inc()
	m.remoteWriteLatency.WithLabelValues(table, op).Observe(d.Seconds())
}

// IncrOptimisticFailure counts a background write whose failure was only logged.
func (m *Metrics) IncrOptimisticFailure(table, op string) {
	m.optimisticFailures.WithLabelValues(table, op).Inc()
}

// IncrStateLoad counts a full reload.
func (m *Metrics) IncrStateLoad(err error) {
	if err != nil {
		m.stateLoads.WithLabelValues(ResultError).Inc()
		return
	}
	m.stateLoads.WithLabelValues(ResultOK).Inc()
}

// IncrBoardTransition counts a lead moving between columns.
func (m *Metrics) IncrBoardTransition(from, to domain.Stage) {
	m.boardTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// WriteStarted and WriteFinished track background writes in flight.
func (m *Metrics) WriteStarted()  { m.inFlight.Inc() }
func (m *Metrics) WriteFinished() { m.inFlight.Dec() }

// GetSyncSnapshot summarizes write health for GET /v1/metrics/sync.
func (m *Metrics) GetSyncSnapshot(revision uint64, lastLoaded time.Time) *domain.SyncMetrics {
	hits := sumFamily(m.Registry, "crm_cache_hits_total", nil)
	misses := sumFamily(m.Registry, "crm_cache_misses_total", nil)
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	snap := &domain.SyncMetrics{
		Revision:         revision,
		RemoteWritesOK:   sumFamily(m.Registry, "crm_remote_writes_total", map[string]string{"result": ResultOK}),
		RemoteWritesFail: sumFamily(m.Registry, "crm_remote_writes_total", map[string]string{"result": ResultError}),
		OptimisticFailed: sumFamily(m.Registry, "crm_optimistic_write_failures_total", nil),
		InFlight:         int64(gaugeValue(m.inFlight)),
		CacheHitRate:     hitRate,
	}
	if !lastLoaded.IsZero() {
		snap.LastLoadedAt = lastLoaded.UTC().Format(time.RFC3339)
	}
	return snap
}

// sumFamily adds up every counter series of a family whose labels match want.
func sumFamily(reg *prometheus.Registry, name string, want map[string]string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return 0
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if !labelsMatch(metric, want) {
				continue
			}
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func labelsMatch(metric *dto.Metric, want map[string]string) bool {
	for k, v := range want {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == k && lp.GetValue() == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// gaugeValue extracts the current float64 value from a gauge.
func gaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}
