package asset

import (
	"os"
	"path/filepath"

	"github.com/teranos/assetstage/errors"
)

// Location is a located record file together with its encoding.
type Location struct {
	Path     string
	Encoding Encoding
}

// Locate returns the first existing record for id in dir, trying Encodings in order.
// The error wraps errors.ErrAssetNotFound when no candidate exists.
func Locate(dir string, id ID) (Location, error) {
	for _, enc := range Encodings {
		path := filepath.Join(dir, enc.Filename(id))
		if _, err := os.Stat(path); err == nil {
			return Location{Path: path, Encoding: enc}, nil
		}
	}
	return Location{}, errors.NewAssetNotFoundError("could not find existing asset file for %s in dir %s", id, dir)
}

// Exists reports whether a record for id is present in dir.
func Exists(dir string, id ID) bool {
	_, err := Locate(dir, id)
	return err == nil
}
