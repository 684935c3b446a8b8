package stage

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/engine"
	"github.com/teranos/assetstage/errors"
	"github.com/teranos/assetstage/logger"
)

// Outcome is the per-asset result of a batch.
type Outcome struct {
	ID     asset.ID
	Result engine.Result
	Err    error
}

// Succeeded reports whether the asset published and the engine accepted it.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Result.Success
}

// ProgressSink observes a batch as it runs.
type ProgressSink interface {
	BatchStarted(batchID string, total int)
	AssetPublished(index int, outcome Outcome)
	BatchFinished(batchID string, allSucceeded bool, elapsed time.Duration)
}

// BatchOptions controls PublishAll.
type BatchOptions struct {
	PublishOptions

	// CollectResults keeps per-asset outcomes. Off by default for large batches.
	CollectResults bool

	// Progress is notified after every asset. Optional.
	Progress ProgressSink

	// SourceFor overrides the source directory per id. Nil publishes every id
	// from the shared source directory.
	SourceFor func(sourceDir string, id asset.ID) string
}

// PerIDSubdir resolves the source of each id as sourceDir/<id>.
func PerIDSubdir(sourceDir string, id asset.ID) string {
	return filepath.Join(sourceDir, string(id))
}

// PublishAll publishes ids one after another in order. Every id is attempted
// regardless of earlier failures. allSucceeded is the AND of every engine success
// flag, with an asset that failed to publish counting as unsuccessful.
// Outcomes are returned in input order when opts.CollectResults is set, nil otherwise.
// The error joins every per-asset publish error.
func (p *Publisher) PublishAll(ctx context.Context, ids []asset.ID, sourceDir string, opts BatchOptions) (allSucceeded bool, outcomes []Outcome, err error) {
	batchID := uuid.NewString()
	ctx = logger.WithBatchID(ctx, batchID)
	log := logger.LoggerFromContext(ctx, p.logger)
	start := time.Now()

	if opts.CollectResults {
		outcomes = make([]Outcome, 0, len(ids))
	}
	if opts.Progress != nil {
		opts.Progress.BatchStarted(batchID, len(ids))
	}
	log.Infow("Publishing batch", logger.FieldCount, len(ids), logger.FieldStrategy, opts.Strategy.String())

	allSucceeded = true
	var errs []error
	for i, id := range ids {
		src := sourceDir
		if opts.SourceFor != nil {
			src = opts.SourceFor(sourceDir, id)
		}

		res, perr := p.Publish(ctx, id, src, opts.PublishOptions)
		outcome := Outcome{ID: id, Result: res, Err: perr}
		if perr != nil {
			errs = append(errs, perr)
			log.Errorw("Asset publish failed", logger.FieldAssetID, string(id), logger.FieldError, perr)
		}
		allSucceeded = allSucceeded && outcome.Succeeded()

		if opts.CollectResults {
			outcomes = append(outcomes, outcome)
		}
		if opts.Progress != nil {
			opts.Progress.AssetPublished(i, outcome)
		}
	}

	elapsed := time.Since(start)
	if opts.Progress != nil {
		opts.Progress.BatchFinished(batchID, allSucceeded, elapsed)
	}
	log.Infow("Batch finished",
		logger.FieldCount, len(ids),
		"success", allSucceeded,
		logger.FieldDurationMS, elapsed.Milliseconds())

	return allSucceeded, outcomes, errors.Join(errs...)
}
