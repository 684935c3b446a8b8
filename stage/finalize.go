package stage

import (
	"path/filepath"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/errors"
)

// Annotation values written onto every finalized record.
const (
	AnnotationObjectType    = "Undefined"
	DefaultPrimaryProperty  = "CanPickup"
	ReceptacleProperty      = "Receptacle"
	annotationObjectTypeKey = "objectType"
	annotationPrimaryKey    = "primaryProperty"
	annotationSecondaryKey  = "secondaryProperties"
)

// RewriteTexturePaths re-roots the texture fields of record under stagingArea/id,
// keeping only each original file name. The normal and albedo textures are required;
// the emission texture is rewritten only when present.
func RewriteTexturePaths(record asset.Record, stagingArea string, id asset.ID) error {
	published := filepath.Join(stagingArea, string(id))

	for _, field := range []string{asset.FieldNormalTexturePath, asset.FieldAlbedoTexturePath} {
		original, ok := record.String(field)
		if !ok {
			return errors.NewInvalidRequestError("asset %s: %s is missing or not a string", id, field)
		}
		record[field] = filepath.Join(published, filepath.Base(original))
	}

	if !record.Has(asset.FieldEmissionTexturePath) {
		return nil
	}
	original, ok := record.String(asset.FieldEmissionTexturePath)
	if !ok {
		return errors.NewInvalidRequestError("asset %s: %s is not a string", id, asset.FieldEmissionTexturePath)
	}
	record[asset.FieldEmissionTexturePath] = filepath.Join(published, filepath.Base(original))
	return nil
}

// Annotate sets the record's annotations block. With curated metadata (ok) the
// properties are copied verbatim. Without it the asset is treated as pickupable
// and gets the Receptacle secondary property only when it is not a receptacle
// candidate.
func Annotate(record asset.Record, meta asset.Metadata, ok bool) {
	var primary string
	var secondary any

	if ok {
		primary = meta.PrimaryProperty
		secondary = append([]any{}, meta.SecondaryProperties...)
	} else {
		primary = DefaultPrimaryProperty
		secondary = []string{}
		// Inverted on purpose: matches the engine's historical default.
		if !record.Bool(asset.FieldReceptacleCandidate) {
			secondary = []string{ReceptacleProperty}
		}
	}

	record[asset.FieldAnnotations] = map[string]any{
		annotationObjectTypeKey: AnnotationObjectType,
		annotationPrimaryKey:    primary,
		annotationSecondaryKey:  secondary,
	}
}
