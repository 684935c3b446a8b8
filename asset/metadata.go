package asset

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/teranos/assetstage/errors"
)

// MetadataFilename is the curated classification file at the root of a source directory.
const MetadataFilename = "thor_metadata.json"

// Metadata is the curated classification of an asset. Secondary properties are
// kept as decoded so they reach the record unchanged.
type Metadata struct {
	PrimaryProperty     string `json:"primaryProperty"`
	SecondaryProperties []any  `json:"secondaryProperties"`
}

type metadataFile struct {
	AssetMetadata *Metadata `json:"assetMetadata"`
}

// LoadMetadata reads dir/thor_metadata.json.
// ok is false (with a nil error) when the file does not exist, meaning the asset is uncurated.
func LoadMetadata(dir string) (meta Metadata, ok bool, err error) {
	path := filepath.Join(dir, MetadataFilename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, false, nil
		}
		return Metadata{}, false, errors.Wrapf(err, "failed to read metadata file %s", path)
	}

	var file metadataFile
	if err := json.Unmarshal(data, &file); err != nil {
		return Metadata{}, false, errors.Wrapf(err, "failed to decode metadata file %s", path)
	}
	if file.AssetMetadata == nil {
		return Metadata{}, false, errors.NewInvalidRequestError("metadata file %s has no assetMetadata block", path)
	}

	meta = *file.AssetMetadata
	if meta.SecondaryProperties == nil {
		meta.SecondaryProperties = []any{}
	}
	return meta, true, nil
}
