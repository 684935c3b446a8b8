package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/assetstage/errors"
)

// UnpublishCmd removes assets from the staging area.
var UnpublishCmd = &cobra.Command{
	Use:   "unpublish <id>...",
	Short: "Remove published assets from the staging area",
	Long: `Remove the staging area entry of each id. Linked entries lose only the link;
their source directories are left untouched. Removing an id that is not
published is not an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUnpublish,
}

func runUnpublish(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := signalContext(cmd)
	defer cancel()

	var errs []error
	for _, id := range ids {
		if err := p.Unpublish(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Unpublished %s\n", id)
	}
	return errors.Join(errs...)
}
