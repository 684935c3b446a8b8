// Package asset models the on-disk description of a publishable asset: its id,
// the two record encodings, locating and decoding the record, and the optional
// classification metadata stored next to it.
package asset

import (
	"strings"

	"github.com/teranos/assetstage/errors"
)

// ID identifies one publishable asset. It is used both as a lookup key and
// as a single path component under the staging area.
type ID string

func (id ID) String() string {
	return string(id)
}

// Validate rejects ids that cannot be used as a single path component.
func (id ID) Validate() error {
	s := string(id)
	switch {
	case s == "":
		return errors.NewInvalidRequestError("asset id is empty")
	case s == "." || s == "..":
		return errors.NewInvalidRequestError("asset id %q is not a valid path component", s)
	case strings.ContainsAny(s, `/\`):
		return errors.NewInvalidRequestError("asset id %q contains a path separator", s)
	case strings.ContainsRune(s, 0):
		return errors.NewInvalidRequestError("asset id contains a NUL byte")
	}
	return nil
}

// IDs converts raw strings (CLI args) into ids.
func IDs(raw []string) []ID {
	ids := make([]ID, 0, len(raw))
	for _, r := range raw {
		ids = append(ids, ID(r))
	}
	return ids
}
