// Package errors provides error handling for assetstage.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Hints and details for CLI users
//   - Error marks, so a wrapped sentinel still matches with Is
//
// Usage:
//
//	// Wrap with context
//	if err := os.Symlink(src, dst); err != nil {
//	    return errors.Wrapf(err, "failed to link %s", dst)
//	}
//
//	// Check the taxonomy
//	if errors.Is(err, errors.ErrAssetNotFound) {
//	    // nothing to publish for this id
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	stderrors "errors"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Join combines per-item failures (batch publish, bulk fetch) into one error.
// A nil result means every input was nil.
var Join = stderrors.Join

// Sentinel errors. Wrap these to add context; errors.Is still matches.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the input was malformed (bad asset id, missing record field)
	ErrInvalidRequest = New("invalid request")

	// ErrAssetNotFound indicates no serialized record exists for an asset id.
	// It is marked as ErrNotFound so generic not-found checks match too.
	ErrAssetNotFound = Mark(New("asset not found"), ErrNotFound)

	// ErrUnsupportedFormat indicates a record path with an unknown extension
	ErrUnsupportedFormat = New("unsupported asset file format")

	// ErrLockUnavailable indicates the per-asset lock could not be acquired
	ErrLockUnavailable = New("asset lock unavailable")

	// ErrEngineUnavailable indicates the engine connection failed or was closed
	ErrEngineUnavailable = New("engine unavailable")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound (including ErrAssetNotFound).
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsAssetNotFound checks if an error is or wraps ErrAssetNotFound
func IsAssetNotFound(err error) bool {
	return err != nil && Is(err, ErrAssetNotFound)
}

// IsUnsupportedFormat checks if an error is or wraps ErrUnsupportedFormat
func IsUnsupportedFormat(err error) bool {
	return err != nil && Is(err, ErrUnsupportedFormat)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// NewAssetNotFoundError creates an asset-not-found error with a formatted message
func NewAssetNotFoundError(format string, args ...interface{}) error {
	return Wrapf(ErrAssetNotFound, format, args...)
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrapf(ErrInvalidRequest, format, args...)
}

// NewUnsupportedFormatError creates an unsupported-format error with a formatted message
func NewUnsupportedFormatError(format string, args ...interface{}) error {
	return Wrapf(ErrUnsupportedFormat, format, args...)
}
