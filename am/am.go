// Package am loads assetstage configuration from defaults, am.toml files and
// ASSETSTAGE_* environment variables.
package am

import "time"

// Config is the assetstage configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine" toml:"engine" yaml:"engine" json:"engine"`
	Staging StagingConfig `mapstructure:"staging" toml:"staging" yaml:"staging" json:"staging"`
	Fetch   FetchConfig   `mapstructure:"fetch" toml:"fetch" yaml:"fetch" json:"fetch"`
	Watch   WatchConfig   `mapstructure:"watch" toml:"watch" yaml:"watch" json:"watch"`
	Log     LogConfig     `mapstructure:"log" toml:"log" yaml:"log" json:"log"`
}

// EngineConfig locates the running engine.
type EngineConfig struct {
	BaseDir        string `mapstructure:"base_dir" toml:"base_dir" yaml:"base_dir" json:"base_dir"`                             // engine build dir; the staging area lives under it
	URL            string `mapstructure:"url" toml:"url" yaml:"url" json:"url"`                                                 // websocket step endpoint
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"` // 0 = no timeout
}

// StagingConfig controls publishing.
type StagingConfig struct {
	DirName  string `mapstructure:"dir_name" toml:"dir_name" yaml:"dir_name" json:"dir_name"`
	Strategy string `mapstructure:"strategy" toml:"strategy" yaml:"strategy" json:"strategy"` // symlink or copy
}

// FetchConfig controls bulk downloads.
type FetchConfig struct {
	SourceTemplate       string  `mapstructure:"source_template" toml:"source_template" yaml:"source_template" json:"source_template"` // go-getter address containing {id}
	CacheDir             string  `mapstructure:"cache_dir" toml:"cache_dir" yaml:"cache_dir" json:"cache_dir"`
	Parallelism          int     `mapstructure:"parallelism" toml:"parallelism" yaml:"parallelism" json:"parallelism"` // 0 = CPU count
	RequestsPerSecond    float64 `mapstructure:"requests_per_second" toml:"requests_per_second" yaml:"requests_per_second" json:"requests_per_second"`
	AllowPrivateNetworks bool    `mapstructure:"allow_private_networks" toml:"allow_private_networks" yaml:"allow_private_networks" json:"allow_private_networks"`
}

// WatchConfig controls the source watcher.
type WatchConfig struct {
	DebounceMs int `mapstructure:"debounce_ms" toml:"debounce_ms" yaml:"debounce_ms" json:"debounce_ms"`
}

// LogConfig controls log output.
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json" yaml:"json" json:"json"`
}

// EngineTimeout is the engine round-trip timeout; zero means none.
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}

// WatchDebounce is the source watcher debounce period.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
