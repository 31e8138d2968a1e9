package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/campuspass/server/internal/campus/store"
	"github.com/campuspass/server/internal/campus/types"
	"github.com/campuspass/server/internal/logging"
)

// RetentionPruner periodically deletes passage records older than the
// retention period. A retention of 0 disables pruning entirely.
type RetentionPruner struct {
	store     store.PassageStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// PrunerConfig holds the parameters for NewRetentionPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of passage history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs. Defaults to 6.
	IntervalHours int
}

// epoch is the lower bound of every prune range.
var epoch = time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC)

// NewRetentionPruner creates a pruner but does not start it.
func NewRetentionPruner(s store.PassageStore, cfg PrunerConfig, logger *slog.Logger) *RetentionPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &RetentionPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		now:       types.Now,
		done:      make(chan struct{}),
	}
}

// Start runs an immediate prune, then repeats on the configured interval
// until ctx is cancelled or Stop is called.
func (p *RetentionPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("passage pruner disabled", "retention_days", 0)
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Info("passage pruner started",
		"retention_days", int(p.retention.Hours()/24), "interval", p.interval)
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *RetentionPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

// PruneOnce deletes everything older than the retention period and reports
// how many records went. It is a no-op when retention is disabled.
func (p *RetentionPruner) PruneOnce(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	cutoff := p.now().Add(-p.retention)
	return p.store.DeleteByTimeRange(ctx, epoch, cutoff)
}

func (p *RetentionPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *RetentionPruner) prune(ctx context.Context) {
	deleted, err := p.PruneOnce(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "passage prune failed", logging.Err(err))
		return
	}
	if deleted > 0 {
		p.logger.InfoContext(ctx, "passage prune", "deleted", deleted,
			"older_than", types.FormatTime(p.now().Add(-p.retention)))
	}
}
