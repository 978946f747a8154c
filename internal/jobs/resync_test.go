package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingLoader struct {
	calls atomic.Int32
	err   error
}

func (l *countingLoader) Load(context.Context) error {
	l.calls.Add(1)
	return l.err
}

func TestScheduleResync_Runs(t *testing.T) {
	s := NewScheduler(time.UTC, zap.NewNop())
	loader := &countingLoader{}
	require.NoError(t, s.ScheduleResync("@every 1s", loader, time.Second))

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return loader.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduleResync_FailureKeepsRunning(t *testing.T) {
	s := NewScheduler(nil, zap.NewNop())
	loader := &countingLoader{err: errors.New("store down")}
	require.NoError(t, s.ScheduleResync("@every 1s", loader, time.Second))

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return loader.calls.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
}

func TestScheduleResync_BadSpec(t *testing.T) {
	s := NewScheduler(time.UTC, zap.NewNop())
	err := s.ScheduleResync("every now and then", &countingLoader{}, time.Second)
	assert.Error(t, err)
}
