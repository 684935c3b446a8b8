package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/assetstage/am"
	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/engine"
	"github.com/teranos/assetstage/logger"
	"github.com/teranos/assetstage/stage"
)

// WatchCmd republishes assets whenever their sources change.
var WatchCmd = &cobra.Command{
	Use:   "watch <id>...",
	Short: "Republish assets when their sources change",
	Long: `Publish each asset once, then watch the source directory and republish an
asset whenever its files change. Changes are debounced (watch.debounce_ms).
An id with a subdirectory <source>/<id> is watched and published from there.

Runs until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

var (
	watchSourceFlag string
	watchCopyFlag   bool
)

func init() {
	WatchCmd.Flags().StringVar(&watchSourceFlag, "source", "", "Directory holding the prepared assets")
	WatchCmd.Flags().BoolVar(&watchCopyFlag, "copy", false, "Publish copies instead of symlinks")
	WatchCmd.MarkFlagRequired("source")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	strategy, err := resolveStrategy(cfg, watchCopyFlag, false)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	p, ctrl, err := openPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	opts := stage.PublishOptions{Strategy: strategy}
	w, err := stage.NewSourceWatcher(p, watchSourceFlag, ids, opts, stage.WithDebounce(cfg.WatchDebounce()))
	if err != nil {
		return err
	}
	defer w.Stop()

	log := logger.Logger.Named("watch")
	w.OnPublish(func(id asset.ID, res engine.Result, err error) {
		reportRepublish(id, res, err)
	})

	// A strategy change in the config applies to later republishes, unless --copy pinned it.
	if !watchCopyFlag {
		if cw, err := am.NewConfigWatcher(am.ActiveConfigFiles()...); err != nil {
			log.Debugw("Config reload disabled", logger.FieldError, err)
		} else {
			defer cw.Stop()
			am.SetGlobalWatcher(cw)
			cw.OnReload(func(cfg *am.Config) error {
				strategy, err := stage.ParseStrategy(cfg.Staging.Strategy)
				if err != nil {
					return err
				}
				w.SetOptions(stage.PublishOptions{Strategy: strategy})
				log.Infow("Staging strategy reloaded", logger.FieldStrategy, strategy.String())
				return nil
			})
			cw.Start()
		}
	}

	for _, id := range ids {
		res, err := p.Publish(ctx, id, w.Source(id), opts)
		reportRepublish(id, res, err)
	}

	w.Start()
	pterm.Info.Printf("Watching %d assets in %s (Ctrl+C to stop)\n", len(ids), watchSourceFlag)
	<-ctx.Done()
	log.Infow("Stopping watcher")
	return nil
}

func reportRepublish(id asset.ID, res engine.Result, err error) {
	switch {
	case err != nil:
		pterm.Error.Printf("%s: %v\n", id, err)
	case !res.Success:
		pterm.Warning.Printf("%s: engine rejected asset: %s\n", id, res.ErrorMessage)
	default:
		pterm.Success.Printf("%s published\n", id)
	}
}
