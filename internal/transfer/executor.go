package transfer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/baulhq/baul/internal/constants"
	"github.com/baulhq/baul/internal/gateway"
	"github.com/baulhq/baul/internal/logging"
)

// GatewayResolver maps a connection id to a live gateway client.
// *gateway.Registry satisfies this.
type GatewayResolver interface {
	Open(connectionID string) (gateway.Gateway, error)
}

// Invalidator is notified after a transfer mutated a bucket so dependent
// listings can be refreshed. The listing invalidation bridge satisfies this.
type Invalidator interface {
	Invalidate(connectionID, bucket string)
}

// BatchResult aggregates the outcome of one batch. Files within a batch
// succeed or fail independently.
type BatchResult struct {
	Succeeded int
	Failed    int
}

// Executor turns queued transfer records into storage gateway calls and
// reports progress and terminal state back into the queue.
//
// Within one batch files run sequentially; independently submitted batches
// run concurrently. A shared semaphore caps gateway calls in flight across
// all batches.
type Executor struct {
	queue       *Queue
	gateways    GatewayResolver
	invalidator Invalidator
	logger      *logging.Logger
	semaphore   chan struct{}
}

// ExecutorConfig configures the Executor.
type ExecutorConfig struct {
	// MaxConcurrent caps gateway calls in flight across all batches.
	// Defaults to constants.DefaultMaxConcurrent.
	MaxConcurrent int
}

// NewExecutor creates an executor feeding the given queue.
// invalidator may be nil when no listing cache is attached.
func NewExecutor(queue *Queue, gateways GatewayResolver, invalidator Invalidator, cfg ExecutorConfig) *Executor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = constants.DefaultMaxConcurrent
	}
	return &Executor{
		queue:       queue,
		gateways:    gateways,
		invalidator: invalidator,
		logger:      logging.NewLogger("executor"),
		semaphore:   make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Submit enqueues the descriptors and starts the batch in the background.
// Returns the record ids immediately; progress is published via events.
func (e *Executor) Submit(ctx context.Context, batch []Descriptor) []string {
	ids := e.enqueue(batch)
	go e.runBatch(ctx, ids)
	return ids
}

// Run enqueues the descriptors and executes the batch synchronously,
// returning the aggregate outcome. Used by CLI commands that wait.
func (e *Executor) Run(ctx context.Context, batch []Descriptor) BatchResult {
	ids := e.enqueue(batch)
	return e.runBatch(ctx, ids)
}

func (e *Executor) enqueue(batch []Descriptor) []string {
	ids := make([]string, 0, len(batch))
	for _, d := range batch {
		rec := e.queue.Enqueue(d)
		ids = append(ids, rec.ID)
	}
	return ids
}

// runBatch executes the batch's records one after another. A failure does
// not abort the batch's remaining files.
func (e *Executor) runBatch(ctx context.Context, ids []string) BatchResult {
	var result BatchResult
	for _, id := range ids {
		if e.runOne(ctx, id) {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	return result
}

// runOne drives a single record through the gateway. Returns true on
// success. The record may already be gone (cleared) or cancelled by the
// time the batch reaches it.
func (e *Executor) runOne(ctx context.Context, id string) bool {
	rec, ok := e.queue.Record(id)
	if !ok || rec.State != StateQueued {
		return false
	}

	select {
	case e.semaphore <- struct{}{}:
	case <-ctx.Done():
		e.queue.Fail(id, ctx.Err())
		return false
	}
	defer func() { <-e.semaphore }()

	transferCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.queue.SetCancel(id, cancel)

	gw, err := e.gateways.Open(rec.ConnectionID)
	if err != nil {
		e.queue.Fail(id, err)
		return false
	}

	// Uploads may be enqueued before the source size is known.
	if rec.Type == TypeUpload && rec.TotalBytes == 0 {
		if info, statErr := os.Stat(rec.LocalPath); statErr == nil {
			size := info.Size()
			e.queue.Update(id, Mutation{TotalBytes: &size})
		}
	}

	e.queue.Start(id)
	progress := e.progressFunc(id)

	switch rec.Type {
	case TypeUpload:
		err = gw.PutObject(transferCtx, rec.Bucket, rec.Key, rec.LocalPath, progress)
	case TypeDownload:
		err = gw.GetObject(transferCtx, rec.Bucket, rec.Key, e.downloadPath(rec), progress)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Cancel via the queue already set the state; a parent context
			// cancellation (shutdown) has not.
			if r, stillThere := e.queue.Record(id); stillThere && !r.State.Terminal() {
				_ = e.queue.Cancel(id)
			}
			return false
		}
		e.queue.Fail(id, err)
		e.logger.Error().Err(err).
			Str("record", id).
			Str("name", rec.Name).
			Msg("Transfer failed")
		return false
	}

	e.queue.Complete(id)
	e.logger.Info().
		Str("record", id).
		Str("name", rec.Name).
		Str("bucket", rec.Bucket).
		Msg("Transfer complete")

	// Only uploads change what a bucket listing shows.
	if rec.Type == TypeUpload && e.invalidator != nil {
		e.invalidator.Invalidate(rec.ConnectionID, rec.Bucket)
	}
	return true
}

// progressFunc builds the throttled gateway progress callback for one
// record. Gateway callbacks fire per chunk; updates are forwarded when
// enough time or progress has accumulated, and always at 100%.
func (e *Executor) progressFunc(id string) gateway.ProgressFunc {
	var lastUpdate time.Time
	var lastPct float64

	return func(transferred, total int64) {
		var pct float64
		if total > 0 {
			pct = float64(transferred) / float64(total) * 100
		}

		now := time.Now()
		final := total > 0 && transferred >= total
		if !final &&
			now.Sub(lastUpdate) < constants.ProgressMinInterval &&
			pct-lastPct < constants.ProgressMinDeltaPct {
			return
		}
		lastUpdate = now
		lastPct = pct

		e.queue.SetProgress(id, transferred, total)
	}
}

// downloadPath resolves the destination file path for a download: if the
// record's local path is an existing directory, the display name is
// appended.
func (e *Executor) downloadPath(rec Record) string {
	if info, err := os.Stat(rec.LocalPath); err == nil && info.IsDir() {
		name := rec.Name
		if name == "" {
			name = filepath.Base(rec.Key)
		}
		return filepath.Join(rec.LocalPath, name)
	}
	return rec.LocalPath
}
