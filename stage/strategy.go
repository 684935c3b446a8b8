// Package stage publishes prepared asset source directories into the engine's
// staging area. Each publish reconciles one target per asset id under a per-id
// file lock, finalizes the asset record, and hands it to the engine.
package stage

import (
	"strings"

	"github.com/teranos/assetstage/errors"
)

// Strategy selects how a target is populated from its source directory.
type Strategy int

const (
	// StrategySymlink publishes the target as a symlink to the source directory.
	StrategySymlink Strategy = iota
	// StrategyCopy publishes a filtered deep copy of the source directory.
	StrategyCopy
)

func (s Strategy) String() string {
	switch s {
	case StrategySymlink:
		return "symlink"
	case StrategyCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// ParseStrategy parses "symlink" or "copy", case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "symlink":
		return StrategySymlink, nil
	case "copy":
		return StrategyCopy, nil
	default:
		return 0, errors.NewInvalidRequestError("unknown staging strategy %q (expected symlink or copy)", s)
	}
}
