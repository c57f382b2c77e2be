package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"mentorship-backend/config"
)

// mockCompleter is a mock implementation of the Completer interface.
type mockCompleter struct {
	calls               atomic.Int32
	CompleteOverdueFunc func(ctx context.Context, limit int) (int, error)
}

func (m *mockCompleter) CompleteOverdue(ctx context.Context, limit int) (int, error) {
	m.calls.Add(1)
	return m.CompleteOverdueFunc(ctx, limit)
}

func TestSweepOnce(t *testing.T) {
	t.Run("drains full batches", func(t *testing.T) {
		remaining := 250
		m := &mockCompleter{CompleteOverdueFunc: func(_ context.Context, limit int) (int, error) {
			n := min(limit, remaining)
			remaining -= n
			return n, nil
		}}
		s := NewService(config.SweeperConfig{}, m, zaptest.NewLogger(t))

		assert.Equal(t, 250, s.SweepOnce(context.Background()))
		assert.Equal(t, int32(3), m.calls.Load())
	})

	t.Run("stops on error", func(t *testing.T) {
		m := &mockCompleter{CompleteOverdueFunc: func(context.Context, int) (int, error) {
			return 2, errors.New("database is locked")
		}}
		s := NewService(config.SweeperConfig{}, m, zaptest.NewLogger(t))

		assert.Equal(t, 2, s.SweepOnce(context.Background()))
		assert.Equal(t, int32(1), m.calls.Load())
	})
}

func TestRun(t *testing.T) {
	t.Run("disabled returns immediately", func(t *testing.T) {
		m := &mockCompleter{}
		s := NewService(config.SweeperConfig{Enabled: false}, m, zaptest.NewLogger(t))
		s.Run(context.Background())
		assert.Zero(t, m.calls.Load())
	})

	t.Run("sweeps on every tick until cancelled", func(t *testing.T) {
		m := &mockCompleter{CompleteOverdueFunc: func(context.Context, int) (int, error) { return 0, nil }}
		cfg := config.SweeperConfig{Enabled: true, Interval: 10 * time.Millisecond, AutoCompleteAfter: time.Hour}
		s := NewService(cfg, m, zaptest.NewLogger(t))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			s.Run(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool { return m.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("sweeper did not stop")
		}
	})
}
