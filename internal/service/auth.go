package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/agency-crm-go/internal/domain"
)

var authTracer = otel.Tracer("service/auth")

const (
	// OwnerSubject is the only subject ever issued: the CRM has a single user.
	OwnerSubject = "owner"

	tokenIssuer       = "agency-crm"
	tokenTypeAccess   = "access"
	maxFailedAttempts = 5
	lockDuration      = 15 * time.Minute
)

// AuthService exchanges the owner password for short-lived access tokens.
// It is disabled when no password hash is configured.
type AuthService struct {
	passwordHash []byte
	jwtSecret    []byte
	accessTTL    time.Duration
	now          func() time.Time
	logger       *zap.Logger

	mu          sync.Mutex
	failed      int
	lockedUntil time.Time
}

// NewAuthService creates the owner auth service.
func NewAuthService(passwordHash, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	if accessTTL <= 0 {
		accessTTL = 12 * time.Hour
	}
	return &AuthService{
		passwordHash: []byte(passwordHash),
		jwtSecret:    []byte(jwtSecret),
		accessTTL:    accessTTL,
		now:          time.Now,
		logger:       logger,
	}
}

// Enabled reports whether routes must require a token.
func (s *AuthService) Enabled() bool {
	return len(s.passwordHash) > 0 && len(s.jwtSecret) > 0
}

// ============================================================
// Login — POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	_, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if !s.Enabled() {
		return nil, &domain.ErrUnauthorized{Message: "Login desativado"}
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Before(s.lockedUntil) {
		remaining := s.lockedUntil.Sub(now).Minutes()
		return nil, &domain.ErrUnauthorized{
			Message: fmt.Sprintf("Acesso temporariamente bloqueado. Tente novamente em %.0f minutos", remaining),
		}
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		s.failed++
		if s.failed >= maxFailedAttempts {
			s.lockedUntil = now.Add(lockDuration)
			s.failed = 0
			s.logger.Warn("login: locked after max attempts", zap.Duration("lock_duration", lockDuration))
			return nil, &domain.ErrUnauthorized{
				Message: fmt.Sprintf("Acesso bloqueado por %d minutos após %d tentativas", int(lockDuration.Minutes()), maxFailedAttempts),
			}
		}
		s.logger.Warn("login: wrong password", zap.Int("attempts", s.failed), zap.Int("max", maxFailedAttempts))
		return nil, &domain.ErrUnauthorized{
			Message: fmt.Sprintf("Senha inválida. %d tentativa(s) restante(s)", maxFailedAttempts-s.failed),
		}
	}
	s.failed = 0

	token, err := s.signAccessToken(now)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	s.logger.Info("owner logged in")

	return &domain.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.accessTTL.Seconds()),
	}, nil
}

// ============================================================
// ValidateAccessToken — used by middleware
// ============================================================

// Claims are the claims carried by access tokens.
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithSubject(OwnerSubject), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	if claims.Type != tokenTypeAccess {
		return nil, &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(now time.Time) (string, error) {
	claims := Claims{
		Type: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   OwnerSubject,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// HashPassword produces the value expected in OWNER_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
