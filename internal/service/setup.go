package service

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
)

var setupTracer = otel.Tracer("service/setup")

// Credential sources reported by the setup status.
const (
	SourceEnv  = "env"
	SourceFile = "file"
)

// SetupService collects the store credentials on first run. Probe checks
// that the store answers before anything is saved.
type SetupService struct {
	probe  func(ctx context.Context, url, key string) error
	save   func(url, key string) error
	logger *zap.Logger

	mu     sync.Mutex
	status domain.SetupStatus
	creds  domain.SetupRequest
	ready  chan struct{}
}

// NewSetupService starts in setup mode unless status is already configured.
func NewSetupService(status domain.SetupStatus, probe func(ctx context.Context, url, key string) error, save func(url, key string) error, logger *zap.Logger) *SetupService {
	s := &SetupService{
		probe:  probe,
		save:   save,
		logger: logger,
		status: status,
		ready:  make(chan struct{}),
	}
	if status.Configured {
		close(s.ready)
	}
	return s
}

// Status reports whether credentials are known and where they came from.
func (s *SetupService) Status() domain.SetupStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Ready is closed once credentials are available.
func (s *SetupService) Ready() <-chan struct{} { return s.ready }

// Credentials returns what Configure accepted.
func (s *SetupService) Credentials() (url, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds.URL, s.creds.Key
}

// Configure verifies and persists the credentials, then releases Ready.
func (s *SetupService) Configure(ctx context.Context, req *domain.SetupRequest) (*domain.SetupStatus, error) {
	ctx, span := setupTracer.Start(ctx, "SetupService.Configure")
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	url := strings.TrimRight(strings.TrimSpace(req.URL), "/")
	key := strings.TrimSpace(req.Key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Configured {
		return nil, &domain.ErrValidation{Field: "url", Message: "credenciais já configuradas"}
	}

	if s.probe != nil {
		if err := s.probe(ctx, url, key); err != nil {
			s.logger.Warn("setup: store did not answer", zap.String("url", url), zap.Error(err))
			return nil, err
		}
	}
	if s.save != nil {
		if err := s.save(url, key); err != nil {
			return nil, err
		}
	}

	s.creds = domain.SetupRequest{URL: url, Key: key}
	s.status = domain.SetupStatus{Configured: true, Source: SourceFile, URL: url}
	close(s.ready)
	s.logger.Info("setup: credentials saved", zap.String("url", url))

	st := s.status
	return &st, nil
}
