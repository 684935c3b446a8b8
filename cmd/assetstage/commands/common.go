package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/assetstage/am"
	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/engine"
	"github.com/teranos/assetstage/errors"
	"github.com/teranos/assetstage/logger"
	"github.com/teranos/assetstage/stage"
)

// loadConfig loads and validates the configuration.
func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// openPublisher connects to the configured engine and returns a publisher for it.
// The caller closes the returned controller.
func openPublisher(ctx context.Context, cfg *am.Config) (*stage.Publisher, *engine.WSController, error) {
	if err := cfg.RequireEngine(); err != nil {
		return nil, nil, err
	}
	ctrl, err := engine.Dial(ctx, cfg.Engine.URL, am.ExpandPath(cfg.Engine.BaseDir),
		engine.WithTimeout(cfg.EngineTimeout()),
		engine.WithLogger(logger.Logger.Named("engine")))
	if err != nil {
		return nil, nil, err
	}
	p := stage.NewPublisher(ctrl,
		stage.WithStagingDirName(cfg.Staging.DirName),
		stage.WithLogger(logger.Logger.Named("stage")))
	return p, ctrl, nil
}

// localPublisher returns a publisher for commands that only inspect or modify the
// staging area and never talk to the engine.
func localPublisher(cfg *am.Config) (*stage.Publisher, error) {
	if err := cfg.RequireEngine(); err != nil {
		return nil, err
	}
	return stage.NewPublisher(offlineEngine{baseDir: am.ExpandPath(cfg.Engine.BaseDir)},
		stage.WithStagingDirName(cfg.Staging.DirName),
		stage.WithLogger(logger.Logger.Named("stage"))), nil
}

// offlineEngine knows where the staging area lives but refuses loads.
type offlineEngine struct {
	baseDir string
}

func (e offlineEngine) BaseDir() string { return e.baseDir }

func (e offlineEngine) Load(ctx context.Context, record asset.Record) (engine.Result, error) {
	return engine.Result{}, errors.Wrap(errors.ErrEngineUnavailable, "no engine connection")
}

// resolveStrategy picks the strategy from --copy/--symlink, falling back to the configured one.
func resolveStrategy(cfg *am.Config, copyFlag, symlinkFlag bool) (stage.Strategy, error) {
	switch {
	case copyFlag && symlinkFlag:
		return 0, errors.NewInvalidRequestError("--copy and --symlink are mutually exclusive")
	case copyFlag:
		return stage.StrategyCopy, nil
	case symlinkFlag:
		return stage.StrategySymlink, nil
	}
	return stage.ParseStrategy(cfg.Staging.Strategy)
}

// parseIDs validates every id argument up front.
func parseIDs(args []string) ([]asset.ID, error) {
	ids := asset.IDs(args)
	for _, id := range ids {
		if err := id.Validate(); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func verbosity(cmd *cobra.Command) int {
	v, _ := cmd.Flags().GetCount("verbose")
	return v
}
