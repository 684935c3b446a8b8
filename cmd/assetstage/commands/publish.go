package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/display"
	"github.com/teranos/assetstage/errors"
	"github.com/teranos/assetstage/stage"
)

// PublishCmd publishes assets into the engine's staging area.
var PublishCmd = &cobra.Command{
	Use:   "publish <id>...",
	Short: "Publish assets into the engine staging area",
	Long: `Publish prepared asset source directories into the engine's staging area
and ask the running engine to load each one.

By default every asset is read from the --source directory itself. With
--per-id-subdir, asset <id> is read from <source>/<id>.

With -v, every publishing step is logged at info level.

Examples:
  assetstage publish chair table --source ./prepared
  assetstage publish -v chair --source ./prepared
  assetstage publish chair --source ./prepared --copy
  assetstage publish chair table --source ./out --per-id-subdir --results --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPublish,
}

var (
	publishSourceFlag      string
	publishCopyFlag        bool
	publishSymlinkFlag     bool
	publishPerIDSubdirFlag bool
	publishResultsFlag     bool
	publishJSONFlag        bool
)

func init() {
	PublishCmd.Flags().StringVar(&publishSourceFlag, "source", "", "Directory holding the prepared assets")
	PublishCmd.Flags().BoolVar(&publishCopyFlag, "copy", false, "Publish a filtered copy of the source")
	PublishCmd.Flags().BoolVar(&publishSymlinkFlag, "symlink", false, "Publish a symlink to the source")
	PublishCmd.Flags().BoolVar(&publishPerIDSubdirFlag, "per-id-subdir", false, "Read asset <id> from <source>/<id>")
	PublishCmd.Flags().BoolVar(&publishResultsFlag, "results", false, "Print the engine result of every asset")
	PublishCmd.Flags().BoolVar(&publishJSONFlag, "json", false, "Emit progress and results as JSON lines")
	PublishCmd.MarkFlagRequired("source")
	PublishCmd.MarkFlagsMutuallyExclusive("copy", "symlink")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	strategy, err := resolveStrategy(cfg, publishCopyFlag, publishSymlinkFlag)
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

	jsonOutput := publishJSONFlag || display.ShouldOutputJSON(cmd)
	opts := stage.BatchOptions{
		PublishOptions: stage.PublishOptions{Strategy: strategy, Verbose: verbosity(cmd) > 0},
		CollectResults: publishResultsFlag,
		Progress:       progressSink(cmd, jsonOutput),
	}
	if publishPerIDSubdirFlag {
		opts.SourceFor = stage.PerIDSubdir
	}

	allSucceeded, outcomes, err := p.PublishAll(ctx, ids, publishSourceFlag, opts)
	if publishResultsFlag {
		if perr := printOutcomes(cmd.OutOrStdout(), outcomes, jsonOutput); perr != nil {
			return perr
		}
	}
	return batchError(len(ids), allSucceeded, err)
}

// progressSink picks JSON lines or pterm rendering.
func progressSink(cmd *cobra.Command, jsonOutput bool) stage.ProgressSink {
	if jsonOutput {
		return NewJSONProgress(cmd.OutOrStdout())
	}
	return NewCLIProgress(verbosity(cmd))
}

// outcomeView is the printed form of one outcome.
type outcomeView struct {
	ID           asset.ID       `json:"id"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Error        string         `json:"error,omitempty"`
	Reply        map[string]any `json:"reply,omitempty"`
}

func printOutcomes(w io.Writer, outcomes []stage.Outcome, jsonOutput bool) error {
	views := make([]outcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		v := outcomeView{
			ID:           o.ID,
			Success:      o.Succeeded(),
			ErrorMessage: o.Result.ErrorMessage,
			Reply:        o.Result.Metadata,
		}
		if o.Err != nil {
			v.Error = o.Err.Error()
		}
		views = append(views, v)
	}

	if jsonOutput {
		return display.WriteJSON(w, views)
	}

	for _, v := range views {
		switch {
		case v.Error != "":
			fmt.Fprintf(w, "%-24s error: %s\n", v.ID, v.Error)
		case !v.Success:
			fmt.Fprintf(w, "%-24s failed: %s\n", v.ID, v.ErrorMessage)
		default:
			fmt.Fprintf(w, "%-24s ok\n", v.ID)
		}
	}
	return nil
}

// batchError turns a batch outcome into the command's error.
func batchError(total int, allSucceeded bool, err error) error {
	if err != nil {
		return errors.Wrapf(err, "batch of %d assets had publish errors", total)
	}
	if !allSucceeded {
		return errors.Newf("engine rejected at least one of %d assets", total)
	}
	return nil
}
