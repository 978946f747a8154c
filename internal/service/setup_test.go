package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
)

func TestSetup_Configure(t *testing.T) {
	var saved []string
	s := NewSetupService(domain.SetupStatus{},
		func(context.Context, string, string) error { return nil },
		func(url, key string) error { saved = append(saved, url, key); return nil },
		zap.NewNop(),
	)

	select {
	case <-s.Ready():
		t.Fatal("ready before configuration")
	default:
	}

	st, err := s.Configure(context.Background(), &domain.SetupRequest{URL: "https://abc.supabase.co/", Key: "anon"})
	require.NoError(t, err)
	assert.True(t, st.Configured)
	assert.Equal(t, SourceFile, st.Source)
	assert.Equal(t, []string{"https://abc.supabase.co", "anon"}, saved)

	<-s.Ready()
	url, key := s.Credentials()
	assert.Equal(t, "https://abc.supabase.co", url)
	assert.Equal(t, "anon", key)

	_, err = s.Configure(context.Background(), &domain.SetupRequest{URL: "https://x.supabase.co", Key: "k"})
	var ve *domain.ErrValidation
	assert.ErrorAs(t, err, &ve)
}

func TestSetup_ProbeFailureSavesNothing(t *testing.T) {
	saved := false
	s := NewSetupService(domain.SetupStatus{},
		func(context.Context, string, string) error { return errors.New("401") },
		func(string, string) error { saved = true; return nil },
		zap.NewNop(),
	)

	_, err := s.Configure(context.Background(), &domain.SetupRequest{URL: "https://abc.supabase.co", Key: "bad"})
	require.Error(t, err)
	assert.False(t, saved)
	assert.False(t, s.Status().Configured)
}

func TestSetup_AlreadyConfigured(t *testing.T) {
	s := NewSetupService(domain.SetupStatus{Configured: true, Source: SourceEnv}, nil, nil, zap.NewNop())
	<-s.Ready()
	assert.Equal(t, SourceEnv, s.Status().Source)
}
