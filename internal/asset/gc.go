package asset

import (
	"context"
	"log/slog"
	"time"
)

// sweepBatchSize caps how many marked attachments one sweep processes.
const sweepBatchSize = 100

// Collector removes the blobs of attachments marked for deletion and then
// purges their records. It runs as a background worker owned by the
// composition root.
type Collector struct {
	store    Store
	objects  ObjectStore
	interval time.Duration
}

func NewCollector(store Store, objects ObjectStore, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Collector{store: store, objects: objects, interval: interval}
}

// Start runs sweeps until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	slog.Info("attachment collector started", "interval", c.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("attachment collector stopped")
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep collects one batch of marked attachments. A failed blob removal
// leaves the record in place so the next sweep retries it.
func (c *Collector) Sweep(ctx context.Context) {
	marked, err := c.store.ListDeletedAttachments(ctx, sweepBatchSize)
	if err != nil {
		slog.Error("listing deleted attachments", "error", err)
		return
	}

	for _, a := range marked {
		if err := c.objects.Remove(ctx, a.ObjectKey); err != nil {
			slog.Warn("removing attachment blob", "attachment_id", a.ID, "error", err)
			continue
		}
		if err := c.store.PurgeAttachment(ctx, a.ID); err != nil {
			slog.Warn("purging attachment record", "attachment_id", a.ID, "error", err)
		}
	}
}
