package stage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/engine"
	"github.com/teranos/assetstage/errors"
	"github.com/teranos/assetstage/logger"
)

// DefaultStagingDirName is the staging area directory under the engine base dir.
const DefaultStagingDirName = "processed_models"

const stagingDirPermissions = 0755

// diagnosticFields are the record fields logged when the engine rejects an asset.
var diagnosticFields = []string{
	asset.FieldAction,
	asset.FieldName,
	asset.FieldReceptacleCandidate,
	asset.FieldAlbedoTexturePath,
	asset.FieldNormalTexturePath,
}

// Publisher publishes assets into the staging area of one engine.
// Publishes of different ids share no state; publishes of the same id are
// serialized through the id's lock file, across processes as well.
type Publisher struct {
	ctrl           engine.Controller
	stagingDirName string
	logger         *zap.SugaredLogger

	// reconciled runs inside the lock after the target reached its final form.
	reconciled func(target string)
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the publisher's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithStagingDirName overrides the staging directory name under the engine base dir.
func WithStagingDirName(name string) Option {
	return func(p *Publisher) {
		if name != "" {
			p.stagingDirName = name
		}
	}
}

// NewPublisher creates a publisher for ctrl.
func NewPublisher(ctrl engine.Controller, opts ...Option) *Publisher {
	p := &Publisher{
		ctrl:           ctrl,
		stagingDirName: DefaultStagingDirName,
		logger:         logger.ComponentLogger("stage"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishOptions controls a single publish.
type PublishOptions struct {
	Strategy Strategy
	// Verbose raises progress messages from debug to info.
	Verbose bool
}

// StagingArea is the directory holding every published target and lock file.
func (p *Publisher) StagingArea() string {
	return filepath.Join(p.ctrl.BaseDir(), p.stagingDirName)
}

// Target is the publish target path for id.
func (p *Publisher) Target(id asset.ID) string {
	return filepath.Join(p.StagingArea(), string(id))
}

// Publish makes the staging target for id reflect sourceDir, finalizes the asset
// record and asks the engine to load it.
//
// A missing record in sourceDir fails before the staging area is touched.
// An engine-reported failure is logged and returned as a Result with Success false;
// errors are reserved for failures that prevented the load from being attempted
// or completed.
func (p *Publisher) Publish(ctx context.Context, id asset.ID, sourceDir string, opts PublishOptions) (engine.Result, error) {
	start := time.Now()
	log := logger.LoggerFromContext(logger.WithAssetID(ctx, string(id)), p.logger)
	progress := progressLogger(log, opts.Verbose)

	if err := id.Validate(); err != nil {
		return engine.Result{}, err
	}
	loc, err := asset.Locate(sourceDir, id)
	if err != nil {
		return engine.Result{}, err
	}

	stagingArea := p.StagingArea()
	if err := os.MkdirAll(stagingArea, stagingDirPermissions); err != nil {
		return engine.Result{}, errors.Wrapf(err, "failed to create staging area %s", stagingArea)
	}
	progress("Publishing asset to staging area",
		logger.FieldStagingArea, stagingArea,
		logger.FieldStrategy, opts.Strategy.String())

	target := p.Target(id)
	var record asset.Record
	err = WithLock(ctx, LockPath(stagingArea, id), func() error {
		if err := p.reconcile(log, progress, target, sourceDir, opts.Strategy); err != nil {
			return err
		}
		if p.reconciled != nil {
			p.reconciled(target)
		}
		var lerr error
		record, lerr = asset.Load(loc)
		return lerr
	})
	if err != nil {
		return engine.Result{}, errors.Wrapf(err, "publish %s", id)
	}

	if err := RewriteTexturePaths(record, stagingArea, id); err != nil {
		return engine.Result{}, err
	}

	meta, ok, err := asset.LoadMetadata(sourceDir)
	if err != nil {
		return engine.Result{}, errors.Wrapf(err, "publish %s", id)
	}
	if !ok {
		progress("Asset metadata is missing annotations, assuming pickupable")
	}
	Annotate(record, meta, ok)

	res, err := p.ctrl.Load(ctx, record)
	if err != nil {
		return engine.Result{}, errors.Wrapf(err, "engine load of %s", id)
	}

	if !res.Success {
		log.Warnw("Engine failed to load asset",
			"error_message", res.ErrorMessage,
			"record", map[string]any(record.Subset(diagnosticFields...)))
	} else {
		log.Debugw("Published asset",
			logger.FieldTarget, target,
			logger.FieldDurationMS, time.Since(start).Milliseconds())
	}
	return res, nil
}

// reconcile brings target into the form required by strategy. Must hold the lock.
func (p *Publisher) reconcile(log *zap.SugaredLogger, progress func(string, ...interface{}), target, sourceDir string, strategy Strategy) error {
	current, err := InspectTarget(target)
	if err != nil {
		return err
	}

	canonical, err := CanonicalPath(sourceDir)
	if err != nil {
		return err
	}
	linkSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", sourceDir)
	}

	plan := PlanReconcile(current, strategy, canonical)
	log.Debugw("Reconciling target",
		logger.FieldTarget, target,
		logger.FieldState, current.String(),
		logger.FieldActions, plan.String())

	if current.Kind == TargetCopied && plan.Removes() {
		progress("Deleting old asset dir", logger.FieldTarget, target)
	}
	if strategy == StrategyCopy {
		progress("Starting copy", logger.FieldSource, sourceDir)
	}

	if err := ApplyPlan(target, linkSource, plan); err != nil {
		return err
	}

	if strategy == StrategyCopy {
		progress("Copy finished", logger.FieldTarget, target)
	}
	return nil
}

// progressLogger returns the level used for progress messages.
func progressLogger(log *zap.SugaredLogger, verbose bool) func(string, ...interface{}) {
	if verbose {
		return log.Infow
	}
	return log.Debugw
}
