package asset

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/teranos/assetstage/errors"
)

const (
	dirPermissions  = 0755
	filePermissions = 0644
)

// Load decodes the record at loc using the encoding carried by the location.
func Load(loc Location) (Record, error) {
	switch loc.Encoding {
	case EncodingJSON:
		return loadJSON(loc.Path)
	case EncodingPickleGz:
		return loadPickleGz(loc.Path)
	default:
		return nil, errors.NewUnsupportedFormatError("unsupported encoding %d for path: %s", int(loc.Encoding), loc.Path)
	}
}

// LoadPath decodes the record at path, choosing the encoding from its extension.
func LoadPath(path string) (Record, error) {
	enc, err := EncodingForPath(path)
	if err != nil {
		return nil, err
	}
	return Load(Location{Path: path, Encoding: enc})
}

// LoadExisting locates and decodes the record for id in dir.
func LoadExisting(dir string, id ID) (Record, error) {
	loc, err := Locate(dir, id)
	if err != nil {
		return nil, err
	}
	return Load(loc)
}

// Save encodes record to path, choosing the encoding from its extension.
// The JSON form creates missing parent directories and is written with a 2-space indent.
func Save(record Record, path string) error {
	enc, err := EncodingForPath(path)
	if err != nil {
		return err
	}

	switch enc {
	case EncodingJSON:
		return saveJSON(record, path)
	default:
		return savePickleGz(record, path)
	}
}

func loadJSON(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read asset file %s", path)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrapf(err, "failed to decode JSON asset file %s", path)
	}
	if record == nil {
		return nil, errors.NewInvalidRequestError("asset file %s does not contain a JSON object", path)
	}
	return record, nil
}

func saveJSON(record Record, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(record); err != nil {
		return errors.Wrapf(err, "failed to encode asset record for %s", path)
	}

	if err := os.WriteFile(path, buf.Bytes(), filePermissions); err != nil {
		return errors.Wrapf(err, "failed to write asset file %s", path)
	}
	return nil
}
