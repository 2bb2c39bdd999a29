// Package retention prunes old interaction history in the background.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Pruner deletes interactions created before a cutoff.
type Pruner interface {
	PruneBefore(t time.Time) (int64, error)
}

// Worker deletes history older than maxAge every interval.
type Worker struct {
	store    Pruner
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewWorker creates a Worker. If interval is <= 0, it defaults to one hour.
func NewWorker(store Pruner, maxAge, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
		logger:   slog.Default(),
	}
}

// Run prunes once immediately and then on every tick until ctx is
// cancelled. A non-positive maxAge keeps everything and Run returns at once.
func (w *Worker) Run(ctx context.Context) {
	if w.maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(); err != nil {
			w.logger.Error("history prune failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce deletes everything older than maxAge and returns the count.
func (w *Worker) RunOnce() (int64, error) {
	cutoff := w.now().Add(-w.maxAge)
	n, err := w.store.PruneBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		w.logger.Info("pruned interaction history", "deleted", n, "cutoff", cutoff)
	}
	return n, nil
}
