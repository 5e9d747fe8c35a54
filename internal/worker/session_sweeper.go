package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/hms-console/internal/repository"
	"github.com/jwalitptl/hms-console/pkg/logger"
	"github.com/jwalitptl/hms-console/pkg/metrics"
)

// SessionSweeper deletes expired and revoked auth sessions on an interval.
type SessionSweeper struct {
	repo     repository.SessionRepository
	interval time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewSessionSweeper(repo repository.SessionRepository, interval time.Duration, l zerolog.Logger, m *metrics.Metrics) *SessionSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SessionSweeper{
		repo:     repo,
		interval: interval,
		logger:   logger.Component(l, "session_sweeper"),
		metrics:  m,
		now:      time.Now,
	}
}

// Start sweeps until ctx is done.
func (w *SessionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				// Log error but continue
				w.logger.Error().Err(err).Msg("session sweep failed")
			}
		}
	}
}

// Sweep runs one pass and returns the number of rows removed.
func (w *SessionSweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := w.now().UTC()

	rows, err := w.repo.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep auth sessions: %w", err)
	}

	w.metrics.Swept(rows)
	w.logger.Debug().Int64("rows", rows).Time("cutoff", cutoff).Msg("swept auth sessions")
	return rows, nil
}
