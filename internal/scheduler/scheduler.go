package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"newsletter/internal/domain"
	"newsletter/internal/service"
)

// Runner executes one newsletter run.
type Runner interface {
	Run(ctx context.Context) (*domain.RunResult, error)
}

type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(runner Runner, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger.With("component", "scheduler"),
	}
}

// Start runs the newsletter every interval until ctx is done. The first run happens one
// interval after start, so a restart does not resend the digest.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "run_timeout", s.runTimeout)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	result, err := s.runner.Run(runCtx)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		s.logger.Warn("skipping scheduled run, another run is in progress")
	case err != nil:
		s.logger.Error("scheduled run failed", "error", err)
	default:
		s.logger.Info("scheduled run finished", "outcome", result.Outcome, "message", result.Message)
	}
}
