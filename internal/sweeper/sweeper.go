package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mentorship-backend/config"
)

const batchSize = 100

// Completer completes accepted sessions that are long over.
type Completer interface {
	CompleteOverdue(ctx context.Context, limit int) (int, error)
}

// Service periodically completes sessions nobody reviewed.
type Service struct {
	cfg       config.SweeperConfig
	completer Completer
	log       *zap.Logger
}

// NewService creates a new sweeper.
func NewService(cfg config.SweeperConfig, completer Completer, log *zap.Logger) *Service {
	return &Service{cfg: cfg, completer: completer, log: log}
}

// Run sweeps once right away and then every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled || s.cfg.AutoCompleteAfter <= 0 {
		s.log.Info("sweeper is disabled, not starting")
		return
	}
	s.log.Info("starting sweeper",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("autoCompleteAfter", s.cfg.AutoCompleteAfter))

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SweepOnce completes overdue sessions in batches and returns how many it
// completed.
func (s *Service) SweepOnce(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n, err := s.completer.CompleteOverdue(ctx, batchSize)
		total += n
		if err != nil {
			s.log.Error("sweep cycle failed", zap.Int("completed", total), zap.Error(err))
			break
		}
		if n < batchSize {
			break
		}
	}
	if total > 0 {
		s.log.Info("sweep cycle finished", zap.Int("completed", total))
	}
	return total
}
