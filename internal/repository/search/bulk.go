package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/zelastic/internal/db"
	"github.com/kailas-cloud/zelastic/internal/metrics"
)

// enqueue adds op to the bulk queue and sends the queue once it reaches BulkSize.
func (a *Adapter) enqueue(ctx context.Context, op db.HashOp) error {
	a.mu.Lock()
	a.queue = append(a.queue, op)
	var batch []db.HashOp
	if len(a.queue) >= a.opts.BulkSize {
		batch = a.queue
		a.queue = nil
	}
	metrics.SearchBulkQueue.Set(float64(len(a.queue)))
	a.mu.Unlock()

	if batch == nil {
		return nil
	}
	return a.send(ctx, batch)
}

// Pending returns the number of queued mutations.
func (a *Adapter) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// Flush sends every queued mutation. It is a no-op outside bulk mode.
func (a *Adapter) Flush(ctx context.Context) error {
	a.mu.Lock()
	batch := a.queue
	a.queue = nil
	metrics.SearchBulkQueue.Set(0)
	a.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return a.send(ctx, batch)
}

// Close flushes the bulk queue.
func (a *Adapter) Close(ctx context.Context) error {
	return a.Flush(ctx)
}

func (a *Adapter) send(ctx context.Context, batch []db.HashOp) error {
	start := time.Now()
	err := a.engine.Apply(ctx, batch)
	metrics.ObserveSearchOp("bulk", start, err)
	if err != nil {
		a.logger.Error("Bulk flush failed", zap.Int("ops", len(batch)), zap.Error(err))
		return fmt.Errorf("bulk flush of %d ops: %w", len(batch), err)
	}
	a.logger.Debug("Bulk flushed",
		zap.Int("ops", len(batch)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
