package commands

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/assetstage/display"
	"github.com/teranos/assetstage/errors"
	"github.com/teranos/assetstage/stage"
)

// StatusCmd lists what is published in the staging area.
var StatusCmd = &cobra.Command{
	Use:   "status [<id>...]",
	Short: "Show published assets",
	Long: `Show the staging area entry of each id, or of every published asset when no
ids are given. Each entry is linked (with its source), copied, or absent.

Examples:
  assetstage status
  assetstage status chair table --json`,
	RunE: runStatus,
}

var statusJSONFlag bool

func init() {
	StatusCmd.Flags().BoolVarP(&statusJSONFlag, "json", "j", false, "Output entries as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := localPublisher(cfg)
	if err != nil {
		return err
	}

	entries, err := p.Status(ids...)
	if err != nil {
		return err
	}
	return printEntries(cmd.OutOrStdout(), p.StagingArea(), entries, statusJSONFlag || display.ShouldOutputJSON(cmd))
}

func printEntries(w io.Writer, stagingArea string, entries []stage.Entry, jsonOutput bool) error {
	if jsonOutput {
		if entries == nil {
			entries = []stage.Entry{}
		}
		return display.WriteJSON(w, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintf(w, "Nothing published in %s\n", stagingArea)
		return nil
	}

	data := pterm.TableData{{"ID", "STATE", "SOURCE"}}
	for _, e := range entries {
		data = append(data, []string{string(e.ID), e.Kind, e.Source})
	}
	rendered, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "failed to render status table")
	}
	fmt.Fprintln(w, rendered)
	return nil
}
