package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default values
const (
	DefaultEngineURL      = "ws://127.0.0.1:8200/step"
	DefaultStagingDirName = "processed_models"
	DefaultStrategy       = "symlink"
	DefaultCacheDir       = "~/.assetstage/cache"
	DefaultDebounceMs     = 500
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Engine defaults
	v.SetDefault("engine.base_dir", "")
	v.SetDefault("engine.url", DefaultEngineURL)
	v.SetDefault("engine.timeout_seconds", 0) // wait as long as the engine needs

	// Staging defaults
	v.SetDefault("staging.dir_name", DefaultStagingDirName)
	v.SetDefault("staging.strategy", DefaultStrategy)

	// Fetch defaults
	v.SetDefault("fetch.source_template", "")
	v.SetDefault("fetch.cache_dir", DefaultCacheDir)
	v.SetDefault("fetch.parallelism", 0) // logical CPU count
	v.SetDefault("fetch.requests_per_second", 0.0)
	v.SetDefault("fetch.allow_private_networks", false)

	// Watch defaults
	v.SetDefault("watch.debounce_ms", DefaultDebounceMs)

	// Log defaults
	v.SetDefault("log.json", false)
}

// BindEnvVars binds the settings most often overridden per host to explicit
// environment variable names.
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("engine.base_dir", "ASSETSTAGE_ENGINE_BASE_DIR")
	v.BindEnv("engine.url", "ASSETSTAGE_ENGINE_URL")
	v.BindEnv("fetch.source_template", "ASSETSTAGE_FETCH_SOURCE_TEMPLATE")
	v.BindEnv("fetch.cache_dir", "ASSETSTAGE_FETCH_CACHE_DIR")
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Engine: {BaseDir: %s, URL: %s}, Staging: {DirName: %s, Strategy: %s}, Fetch: {Parallelism: %d}}",
		c.Engine.BaseDir, c.Engine.URL, c.Staging.DirName, c.Staging.Strategy, c.Fetch.Parallelism)
}
