// Package display renders command results for terminals and for machines.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// EnvJSON forces JSON output for every command that supports it.
const EnvJSON = "ASSETSTAGE_JSON"

// ShouldOutputJSON reports whether cmd should print JSON. An explicit --json flag
// wins; otherwise ASSETSTAGE_JSON decides.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd != nil && cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}
	enabled, _ := strconv.ParseBool(os.Getenv(EnvJSON))
	return enabled
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
