package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/assetstage/am"
	"github.com/teranos/assetstage/cmd/assetstage/commands"
	"github.com/teranos/assetstage/errors"
	"github.com/teranos/assetstage/logger"
)

var (
	configFileFlag string
	jsonLogFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "assetstage",
	Short: "assetstage - Publish runtime assets into a running simulation engine",
	Long: `assetstage - Publish prepared runtime assets into a running simulation engine.

Assets are staged under the engine build's staging directory, either as a
symlink to their source or as a filtered copy, and then loaded by the engine.

Available commands:
  publish   - Publish assets into the staging area and load them
  fetch     - Download assets into the local cache
  status    - Show published assets
  unpublish - Remove published assets
  watch     - Republish assets when their sources change
  locate    - Find the description file of an asset
  am        - Manage configuration ("I am")

Examples:
  assetstage publish chair --source ./prepared
  assetstage fetch chair table --publish
  assetstage status
  assetstage am show`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFileFlag != "" {
			am.SetConfigFile(configFileFlag)
		}

		jsonLog := jsonLogFlag
		if !cmd.Flags().Changed("json-log") {
			// Config problems surface in the command itself.
			if cfg, err := am.Load(); err == nil {
				jsonLog = cfg.Log.JSON
			}
		}

		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(jsonLog, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogFlag, "json-log", false, "Write logs as JSON")
	rootCmd.PersistentFlags().StringVar(&configFileFlag, "config", "", "Read configuration from this file only")

	rootCmd.AddCommand(commands.PublishCmd)
	rootCmd.AddCommand(commands.FetchCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.UnpublishCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.LocateCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
