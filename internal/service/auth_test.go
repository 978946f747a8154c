package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
)

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	hash, err := HashPassword("s3nha-forte")
	require.NoError(t, err)
	return NewAuthService(hash, "test-secret", time.Hour, zap.NewNop())
}

func TestAuth_LoginAndValidate(t *testing.T) {
	auth := newTestAuth(t)
	require.True(t, auth.Enabled())

	resp, err := auth.Login(context.Background(), &domain.LoginRequest{Password: "s3nha-forte"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)

	claims, err := auth.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, OwnerSubject, claims.Subject)
}

func TestAuth_RejectsForeignAndExpiredTokens(t *testing.T) {
	auth := newTestAuth(t)
	resp, err := auth.Login(context.Background(), &domain.LoginRequest{Password: "s3nha-forte"})
	require.NoError(t, err)

	other := NewAuthService("x", "another-secret", time.Hour, zap.NewNop())
	_, err = other.ValidateAccessToken(resp.AccessToken)
	var ue *domain.ErrUnauthorized
	assert.ErrorAs(t, err, &ue)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.ValidateAccessToken(resp.AccessToken)
	assert.ErrorAs(t, err, &ue)
}

func TestAuth_LockoutAfterFailures(t *testing.T) {
	auth := newTestAuth(t)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < maxFailedAttempts; i++ {
		_, err := auth.Login(ctx, &domain.LoginRequest{Password: "errada"})
		require.Error(t, err)
	}

	_, err := auth.Login(ctx, &domain.LoginRequest{Password: "s3nha-forte"})
	var ue *domain.ErrUnauthorized
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Message, "bloqueado")

	now = now.Add(lockDuration + time.Second)
	_, err = auth.Login(ctx, &domain.LoginRequest{Password: "s3nha-forte"})
	assert.NoError(t, err)
}

func TestAuth_Disabled(t *testing.T) {
	auth := NewAuthService("", "", 0, zap.NewNop())
	assert.False(t, auth.Enabled())

	_, err := auth.Login(context.Background(), &domain.LoginRequest{Password: "x"})
	var ue *domain.ErrUnauthorized
	assert.ErrorAs(t, err, &ue)
}
