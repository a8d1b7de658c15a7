// Package stats periodically publishes entity counts as Prometheus gauges.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/grove/pkg/observability"
	"github.com/platinummonkey/grove/pkg/storage"
)

// Counter is the part of the repository the collector reads.
type Counter interface {
	Counts(ctx context.Context) (storage.Counts, error)
}

// Collector refreshes the tree, insect and association gauges on a cron
// schedule.
type Collector struct {
	repo    Counter
	metrics *observability.Metrics
	logger  *observability.Logger
	timeout time.Duration
	cron    *cron.Cron
}

// NewCollector creates a collector. Call Start to begin collecting.
func NewCollector(repo Counter, metrics *observability.Metrics, logger *observability.Logger) *Collector {
	return &Collector{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		timeout: 10 * time.Second,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Collect reads the counts once and updates the gauges.
func (c *Collector) Collect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	counts, err := c.repo.Counts(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect counts: %w", err)
	}

	c.metrics.TreesTotal.Set(float64(counts.Trees))
	c.metrics.InsectsTotal.Set(float64(counts.Insects))
	c.metrics.AssociationsTotal.Set(float64(counts.Associations))
	return nil
}

// Start collects once immediately and then on schedule, a standard cron
// spec or a descriptor such as "@every 1m".
func (c *Collector) Start(ctx context.Context, schedule string) error {
	_, err := c.cron.AddFunc(schedule, func() {
		defer observability.RecoverPanic(c.logger, "stats collection")
		if err := c.Collect(ctx); err != nil {
			c.logger.WithError(err).Warn("Stats collection failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}

	if err := c.Collect(ctx); err != nil {
		c.logger.WithError(err).Warn("Initial stats collection failed")
	}

	c.cron.Start()
	c.logger.WithField("schedule", schedule).Info("Stats collector started")
	return nil
}

// Stop halts the schedule and waits for a running collection to finish or
// ctx to expire.
func (c *Collector) Stop(ctx context.Context) error {
	select {
	case <-c.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
