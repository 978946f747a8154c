package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// SyncMetrics is returned by GET /v1/metrics/sync.
type SyncMetrics struct {
	Revision         uint64  `json:"revision"`
	LastLoadedAt     string  `json:"lastLoadedAt,omitempty"`
	RemoteWritesOK   float64 `json:"remoteWritesOk"`
	RemoteWritesFail float64 `json:"remoteWritesFailed"`
	OptimisticFailed float64 `json:"optimisticFailed"`
	InFlight         int64   `json:"inFlight"`
	CacheHitRate     float64 `json:"cacheHitRate"`
}

// SetupStatus is returned by GET /v1/setup.
type SetupStatus struct {
	Configured bool   `json:"configured"`
	Source     string `json:"source,omitempty"` // env, file
	URL        string `json:"url,omitempty"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
