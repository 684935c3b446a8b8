package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/assetstage/am"
	"github.com/teranos/assetstage/errors"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage assetstage configuration",
	Long: `am: manage assetstage configuration ("I am")

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (ASSETSTAGE_* prefix)
3. Project config (./am.toml, searched up from the working directory)
4. User config (~/.assetstage/am.toml)
5. System config (/etc/assetstage/am.toml)
6. Default values

--config FILE replaces the three config files with FILE.

Examples:
  assetstage am show                        # Show current configuration
  assetstage am show --format json          # Show configuration as JSON
  assetstage am get engine.base_dir         # Get one value
  assetstage am set staging.strategy copy   # Persist a value in the user config
  assetstage am where                       # Show where each value comes from
  assetstage am validate                    # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective configuration merged from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., engine.url, fetch.parallelism)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value",
	Long:  "Write a value into the user config (~/.assetstage/am.toml, or --file). The previous file is kept as a rotating backup.",
	Args:  cobra.ExactArgs(2),
	RunE:  runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate that the effective configuration is usable",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where each configuration value comes from",
	RunE:  runAmWhere,
}

var (
	amFormatFlag string
	amFileFlag   string
)

func init() {
	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)

	amShowCmd.Flags().StringVar(&amFormatFlag, "format", "toml", "Output format (toml, json, yaml)")
	amSetCmd.Flags().StringVar(&amFileFlag, "file", "", "Config file to write (default ~/.assetstage/am.toml)")
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	return writeConfig(cmd.OutOrStdout(), cfg, amFormatFlag)
}

func writeConfig(w io.Writer, cfg *am.Config, format string) error {
	var (
		output []byte
		err    error
	)
	switch format {
	case "toml":
		output, err = toml.Marshal(cfg)
	case "json":
		output, err = json.MarshalIndent(cfg, "", "  ")
	case "yaml":
		output, err = yaml.Marshal(cfg)
	default:
		return errors.Newf("unsupported format: %s (use toml, json, or yaml)", format)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to marshal config to %s", format)
	}
	fmt.Fprint(w, string(output))
	if format == "json" {
		fmt.Fprintln(w)
	}
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	v, err := am.GetViper()
	if err != nil {
		return err
	}
	if !v.IsSet(key) {
		return errors.Newf("configuration key %q not found", key)
	}

	value, err := am.Get(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	path := amFileFlag
	if path == "" {
		path = am.UserConfigPath()
	}
	if err := am.SetValue(path, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", args[0], args[1], path)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	settings, err := am.GetConfigIntrospection()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(w, "  1. [default]      Built-in defaults")
	fmt.Fprintln(w, "  2. [system]       /etc/assetstage/am.toml")
	fmt.Fprintln(w, "  3. [user]         ~/.assetstage/am.toml")
	fmt.Fprintln(w, "  4. [project]      ./am.toml (searches up directories)")
	fmt.Fprintln(w, "  5. [environment]  ASSETSTAGE_* environment variables")
	fmt.Fprintln(w)

	for _, s := range settings {
		origin := string(s.Source)
		if s.SourcePath != "" && s.Source != am.SourceDefault {
			origin = fmt.Sprintf("%s (%s)", s.Source, s.SourcePath)
		}
		fmt.Fprintf(w, "  %-32s = %-30v %s\n", s.Key, s.Value, origin)
	}
	return nil
}
