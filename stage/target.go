package stage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/teranos/assetstage/errors"
)

// TargetKind is the on-disk form of a publish target.
type TargetKind int

const (
	TargetAbsent TargetKind = iota
	TargetLinked
	TargetCopied
)

func (k TargetKind) String() string {
	switch k {
	case TargetAbsent:
		return "absent"
	case TargetLinked:
		return "linked"
	case TargetCopied:
		return "copied"
	default:
		return "unknown"
	}
}

// TargetState describes a publish target.
// Source is the canonical link destination for TargetLinked and empty otherwise;
// the origin of a copy is not recorded on disk.
type TargetState struct {
	Kind   TargetKind
	Source string
}

func (s TargetState) String() string {
	if s.Kind == TargetLinked {
		return fmt.Sprintf("linked(%s)", s.Source)
	}
	return s.Kind.String()
}

// Absent, Linked and Copied construct target states.
func Absent() TargetState { return TargetState{Kind: TargetAbsent} }
func Linked(source string) TargetState { return TargetState{Kind: TargetLinked, Source: source} }
func Copied() TargetState { return TargetState{Kind: TargetCopied} }

// InspectTarget reads the current state of path without following it.
// A dangling link reports its raw link text as Source.
func InspectTarget(path string) (TargetState, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Absent(), nil
		}
		return TargetState{}, errors.Wrapf(err, "failed to inspect target %s", path)
	}

	if info.Mode()&os.ModeSymlink == 0 {
		return Copied(), nil
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return Linked(resolved), nil
	}
	raw, rerr := os.Readlink(path)
	if rerr != nil {
		return TargetState{}, errors.Wrapf(rerr, "failed to read link %s", path)
	}
	return Linked(raw), nil
}

// CanonicalPath resolves symlinks in path and makes it absolute.
func CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s", path)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s", path)
	}
	return resolved, nil
}
