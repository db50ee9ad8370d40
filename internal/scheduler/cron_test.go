package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidatesSpec(t *testing.T) {
	s := NewCronScheduler(0)
	noop := func(context.Context) {}

	assert.Error(t, s.Register("empty", "", noop))
	assert.Error(t, s.Register("bad", "not a cron", noop))
	assert.Error(t, s.Register("nil", "@hourly", nil))

	require.NoError(t, s.Register("cycle", "0 * * * *", noop))
	require.NoError(t, s.Register("every", "@every 30m", noop))
	assert.Equal(t, 2, s.Entries())
}

func TestRunStopsWithContext(t *testing.T) {
	s := NewCronScheduler(time.Second)
	require.NoError(t, s.Register("cycle", "@every 1h", func(context.Context) {}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return !s.Next().IsZero() }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestJobReceivesCancelledContextOnStop(t *testing.T) {
	s := NewCronScheduler(0)
	started := make(chan struct{}, 1)
	finished := make(chan error, 8)
	require.NoError(t, s.Register("slow", "@every 1s", func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		select {
		case finished <- ctx.Err():
		default:
		}
	}))
	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never ran")
	}
	s.Stop()
	assert.ErrorIs(t, <-finished, context.Canceled)
}
