package stage

import (
	"os"
	"path/filepath"

	cp "github.com/otiai10/copy"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/errors"
)

// CopyExcludes are base-name patterns left out of copy-mode targets at every depth.
var CopyExcludes = []string{"images", "*.obj", asset.MetadataFilename}

// excluded reports whether a base name matches one of CopyExcludes.
func excluded(name string) bool {
	for _, pattern := range CopyExcludes {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// ApplyPlan executes plan against target. linkSource is the text written into a new
// symlink; copies read from it as well.
func ApplyPlan(target, linkSource string, plan Plan) error {
	for _, action := range plan.Actions {
		if err := applyAction(target, linkSource, action); err != nil {
			return errors.Wrapf(err, "%s %s", action.Kind, target)
		}
	}
	return nil
}

func applyAction(target, source string, action Action) error {
	switch action.Kind {
	case ActionRemoveTree:
		return os.RemoveAll(target)
	case ActionRemoveLink:
		return os.Remove(target)
	case ActionLink:
		return os.Symlink(source, target)
	case ActionCopy:
		return copyFiltered(source, target)
	default:
		return errors.Newf("unknown action %d", int(action.Kind))
	}
}

// copyFiltered deep-copies source into target, following symlinks inside source
// and skipping entries matched by CopyExcludes.
func copyFiltered(source, target string) error {
	return cp.Copy(source, target, cp.Options{
		OnSymlink: func(string) cp.SymlinkAction {
			return cp.Deep
		},
		Skip: func(info os.FileInfo, src, dest string) (bool, error) {
			return excluded(filepath.Base(src)), nil
		},
		PermissionControl: cp.AddPermission(0200),
	})
}
