// Package retention deletes groups nobody has opened within the retention
// window.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/brokewise/internal/metrics"
)

// Purger deletes groups last accessed before cutoff.
// storage.Store satisfies it.
type Purger interface {
	DeleteInactiveGroups(ctx context.Context, cutoff time.Time) (int64, error)
}

// Params configure a Janitor.
type Params struct {
	Store     Purger
	Retention time.Duration
	Interval  time.Duration
	Metrics   *metrics.Metrics

	// Now overrides time.Now.
	Now func() time.Time
}

// Janitor periodically purges inactive groups.
type Janitor struct {
	store     Purger
	retention time.Duration
	interval  time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New builds a Janitor.
func New(p Params) (*Janitor, error) {
	if p.Store == nil {
		return nil, errors.New("store required")
	}
	if p.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %v", p.Retention)
	}
	if p.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", p.Interval)
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Janitor{
		store:     p.Store,
		retention: p.Retention,
		interval:  p.Interval,
		metrics:   p.Metrics,
		now:       now,
	}, nil
}

// Run purges once immediately and then every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	if _, err := j.RunOnce(ctx); err != nil {
		slog.Error("Retention sweep failed", "error", err)
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Retention janitor stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				slog.Error("Retention sweep failed", "error", err)
			}
		}
	}
}

// RunOnce deletes every group idle for longer than the retention window and
// returns how many were removed.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)
	n, err := j.store.DeleteInactiveGroups(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge groups idle since %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.metrics.GroupsPurged(n)
	if n > 0 {
		slog.Info("Purged inactive groups", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return n, nil
}
