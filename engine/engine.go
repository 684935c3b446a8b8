// Package engine defines the contract between the publisher and the running
// simulation engine: where the engine reads published assets from, and the
// load call that hands it a finalized asset record.
package engine

import (
	"context"

	"github.com/teranos/assetstage/asset"
)

// Controller is the engine-side collaborator used by the publisher.
type Controller interface {
	// BaseDir is the engine build's base directory; the staging area lives under it.
	BaseDir() string

	// Load asks the engine to create the asset described by record.
	// An engine-reported failure is a Result with Success false, not an error.
	// Errors are reserved for transport failures.
	Load(ctx context.Context, record asset.Record) (Result, error)
}

// Result is the engine's answer to a Load call.
type Result struct {
	Success      bool           `json:"lastActionSuccess"`
	ErrorMessage string         `json:"errorMessage"`
	Metadata     map[string]any `json:"-"` // full reply as sent by the engine
}
