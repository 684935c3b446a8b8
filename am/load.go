package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/assetstage/errors"
)

// EnvPrefix prefixes every configuration environment variable.
const EnvPrefix = "ASSETSTAGE"

// ConfigFilename is the name of every config file in the cascade.
const ConfigFilename = "am.toml"

var (
	mu            sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper

	// ConfigSources records which file each key was last set from during loading.
	ConfigSources = map[string]SourceInfo{}

	// explicitConfigFile, when set, replaces the file cascade.
	explicitConfigFile string
)

// SetConfigFile makes Load read only path (plus defaults and environment).
// An empty path restores the cascade.
func SetConfigFile(path string) {
	mu.Lock()
	defer mu.Unlock()
	explicitConfigFile = path
	globalConfig = nil
	viperInstance = nil
}

// Load reads the assetstage configuration using Viper
func Load() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalConfig != nil {
		return globalConfig, nil
	}

	v, err := initViper()
	if err != nil {
		return nil, err
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, err
	}

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() (*viper.Viper, error) {
	mu.Lock()
	defer mu.Unlock()
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// Set defaults but don't bind environment variables for this specific load
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

// initViper initializes Viper with configuration sources and defaults. Caller holds mu.
func initViper() (*viper.Viper, error) {
	if viperInstance != nil {
		return viperInstance, nil
	}

	v := viper.New()

	// Set up environment variable binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindEnvVars(v)

	SetDefaults(v)

	sources := map[string]SourceInfo{}
	if explicitConfigFile != "" {
		if err := mergeConfigFile(v, explicitConfigFile, SourceExplicit, sources); err != nil {
			return nil, err
		}
	} else {
		for _, cf := range configCascade() {
			if err := mergeConfigFile(v, cf.path, cf.source, sources); err != nil {
				return nil, err
			}
		}
	}

	ConfigSources = sources
	viperInstance = v
	return v, nil
}

type cascadeFile struct {
	path   string
	source ConfigSource
}

// configCascade lists config files from lowest to highest precedence:
// system < user < project. Environment variables override all of them.
func configCascade() []cascadeFile {
	files := []cascadeFile{
		{path: filepath.Join("/etc", "assetstage", ConfigFilename), source: SourceSystem},
	}
	if dir := UserConfigDir(); dir != "" {
		files = append(files, cascadeFile{path: filepath.Join(dir, ConfigFilename), source: SourceUser})
	}
	if project := findProjectConfig(); project != "" {
		files = append(files, cascadeFile{path: project, source: SourceProject})
	}
	return files
}

// UserConfigDir is ~/.assetstage, or empty when the home dir is unknown.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".assetstage")
}

// findProjectConfig searches for am.toml by walking up the directory tree
// Returns the path to the first config file found, or empty string if none found
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		amPath := filepath.Join(dir, ConfigFilename)
		if _, err := os.Stat(amPath); err == nil {
			return amPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFile merges configPath into v if it exists, recording each key's source.
// A file that exists but cannot be parsed is an error.
func mergeConfigFile(v *viper.Viper, configPath string, source ConfigSource, sources map[string]SourceInfo) error {
	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) && source != SourceExplicit {
			return nil
		}
		return errors.Wrapf(err, "failed to stat config file %s", configPath)
	}

	tempViper := viper.New()
	tempViper.SetConfigFile(configPath)
	tempViper.SetConfigType("toml")
	if err := tempViper.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	// Merged into the config layer so environment variables still take precedence.
	if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
		return errors.Wrapf(err, "failed to merge config file %s", configPath)
	}
	for _, key := range tempViper.AllKeys() {
		sources[key] = SourceInfo{Source: source, Path: configPath}
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Get returns a configuration value using dot notation
func Get(key string) (interface{}, error) {
	v, err := GetViper()
	if err != nil {
		return nil, err
	}
	return v.Get(key), nil
}
