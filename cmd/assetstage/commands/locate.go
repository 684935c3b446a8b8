package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/assetstage/asset"
)

// LocateCmd finds an asset's description file in a source directory.
var LocateCmd = &cobra.Command{
	Use:   "locate <id>",
	Short: "Find the description file of an asset",
	Long: `Print the path and encoding of the description file for <id> in the source
directory. A JSON file takes precedence over a compressed pickle.`,
	Args: cobra.ExactArgs(1),
	RunE: runLocate,
}

var locateSourceFlag string

func init() {
	LocateCmd.Flags().StringVar(&locateSourceFlag, "source", "", "Directory holding the prepared assets")
	LocateCmd.MarkFlagRequired("source")
}

func runLocate(cmd *cobra.Command, args []string) error {
	id := asset.ID(args[0])
	if err := id.Validate(); err != nil {
		return err
	}

	loc, err := asset.Locate(locateSourceFlag, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", loc.Path, loc.Encoding)
	return nil
}
