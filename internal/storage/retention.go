package storage

import (
	"context"
	"log/slog"
	"time"
)

// RetentionWorker periodically prunes status history older than the
// retention window. A failed purge is logged and retried on the next tick.
type RetentionWorker struct {
	store         Store
	retentionDays int
	period        time.Duration
	logger        *slog.Logger
}

func NewRetentionWorker(store Store, retentionDays int, period time.Duration, logger *slog.Logger) *RetentionWorker {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	if period <= 0 {
		period = 24 * time.Hour
	}
	return &RetentionWorker{
		store:         store,
		retentionDays: retentionDays,
		period:        period,
		logger:        logger,
	}
}

func (w *RetentionWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.period)
	defer ticker.Stop()

	// Run once on startup
	w.purge(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.purge(ctx)
		}
	}
}

func (w *RetentionWorker) purge(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)
	deleted, err := w.store.PurgeStatusBefore(ctx, cutoff)
	if err != nil {
		w.logger.Error("retention purge failed", "error", err)
		return
	}
	if deleted > 0 {
		w.logger.Info("retention purge completed", "deleted", deleted, "before", cutoff.Format(time.RFC3339))
	}
}
