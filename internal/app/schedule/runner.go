package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Job is a unit of periodic work.
type Job func(ctx context.Context, now time.Time) error

// Runner executes a named job on a fixed interval until the context ends.
type Runner struct {
	Name     string
	Interval time.Duration
	Job      Job
	Logger   *slog.Logger
}

func (r *Runner) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := r.Job(ctx, now); err != nil {
				logger.Error("scheduled job failed", "job", r.Name, "error", err)
			}
		}
	}
}
