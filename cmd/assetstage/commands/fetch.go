package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/assetstage/am"
	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/display"
	"github.com/teranos/assetstage/errors"
	"github.com/teranos/assetstage/fetch"
	"github.com/teranos/assetstage/logger"
	"github.com/teranos/assetstage/stage"
)

// FetchCmd downloads assets into the local cache.
var FetchCmd = &cobra.Command{
	Use:   "fetch <id>...",
	Short: "Download assets into the local cache",
	Long: `Download assets from the configured source template into the local cache.
Every {id} in fetch.source_template is replaced with the asset id; any go-getter
address works (local paths, archives, http, https). Assets already in the cache
are not downloaded again.

With --publish, every fetched asset is published from its cache directory.

Examples:
  assetstage fetch chair table
  assetstage fetch chair --parallelism 4
  assetstage fetch chair table --publish --copy`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

var (
	fetchParallelismFlag int
	fetchPublishFlag     bool
	fetchCopyFlag        bool
	fetchJSONFlag        bool
)

func init() {
	FetchCmd.Flags().IntVar(&fetchParallelismFlag, "parallelism", 0, "Concurrent downloads (default fetch.parallelism, then CPU count)")
	FetchCmd.Flags().BoolVar(&fetchPublishFlag, "publish", false, "Publish every fetched asset")
	FetchCmd.Flags().BoolVar(&fetchCopyFlag, "copy", false, "Publish copies instead of symlinks (with --publish)")
	FetchCmd.Flags().BoolVar(&fetchJSONFlag, "json", false, "Emit publish progress as JSON lines")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	parallelism := fetchParallelismFlag
	if parallelism == 0 {
		parallelism = cfg.Fetch.Parallelism
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	f := fetch.New(fetch.Config{
		SourceTemplate:       cfg.Fetch.SourceTemplate,
		CacheDir:             am.ExpandPath(cfg.Fetch.CacheDir),
		RequestsPerSecond:    cfg.Fetch.RequestsPerSecond,
		AllowPrivateNetworks: cfg.Fetch.AllowPrivateNetworks,
	}, fetch.WithLogger(logger.Logger.Named("fetch")))

	dirs, fetchErr := f.Fetch(ctx, ids, parallelism)
	for _, id := range ids {
		if dir, ok := dirs[id]; ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, dir)
		}
	}

	if !fetchPublishFlag || len(dirs) == 0 {
		return fetchErr
	}

	strategy, err := resolveStrategy(cfg, fetchCopyFlag, false)
	if err != nil {
		return err
	}
	p, ctrl, err := openPublisher(ctx, cfg)
	if err != nil {
		return errors.Join(fetchErr, err)
	}
	defer ctrl.Close()

	fetched := make([]asset.ID, 0, len(dirs))
	for _, id := range ids {
		if _, ok := dirs[id]; ok {
			fetched = append(fetched, id)
		}
	}

	allSucceeded, _, err := p.PublishAll(ctx, fetched, "", stage.BatchOptions{
		PublishOptions: stage.PublishOptions{Strategy: strategy},
		Progress:       progressSink(cmd, fetchJSONFlag || display.ShouldOutputJSON(cmd)),
		SourceFor: func(_ string, id asset.ID) string {
			return dirs[id]
		},
	})
	return errors.Join(fetchErr, batchError(len(fetched), allSucceeded, err))
}
