package am

import (
	"strings"

	"github.com/teranos/assetstage/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Engine base dir is only required by commands that publish; they check it themselves.

	if c.Engine.TimeoutSeconds < 0 {
		return errors.Newf("engine.timeout_seconds must be >= 0, got %d", c.Engine.TimeoutSeconds)
	}
	if c.Engine.URL != "" && !strings.HasPrefix(c.Engine.URL, "ws://") && !strings.HasPrefix(c.Engine.URL, "wss://") {
		return errors.Newf("engine.url must be a ws:// or wss:// URL, got %q", c.Engine.URL)
	}

	switch strings.ToLower(c.Staging.Strategy) {
	case "symlink", "copy":
	default:
		return errors.Newf("staging.strategy must be symlink or copy, got %q", c.Staging.Strategy)
	}
	if c.Staging.DirName == "" || strings.ContainsAny(c.Staging.DirName, `/\`) {
		return errors.Newf("staging.dir_name must be a single directory name, got %q", c.Staging.DirName)
	}

	// Fetch parallelism: 0 = CPU count, negative = invalid
	if c.Fetch.Parallelism < 0 {
		return errors.Newf("fetch.parallelism must be >= 0, got %d", c.Fetch.Parallelism)
	}
	if c.Fetch.RequestsPerSecond < 0 {
		return errors.Newf("fetch.requests_per_second must be >= 0, got %f", c.Fetch.RequestsPerSecond)
	}
	if c.Fetch.SourceTemplate != "" && !strings.Contains(c.Fetch.SourceTemplate, "{id}") {
		return errors.Newf("fetch.source_template must contain {id}, got %q", c.Fetch.SourceTemplate)
	}

	if c.Watch.DebounceMs <= 0 {
		return errors.Newf("watch.debounce_ms must be > 0, got %d", c.Watch.DebounceMs)
	}

	return nil
}

// RequireEngine checks the settings needed to publish.
func (c *Config) RequireEngine() error {
	if c.Engine.BaseDir == "" {
		return errors.WithHint(
			errors.New("engine.base_dir is not configured"),
			"set [engine] base_dir in am.toml or ASSETSTAGE_ENGINE_BASE_DIR")
	}
	return nil
}
