package stage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/errors"
)

func TestRewriteTexturePaths(t *testing.T) {
	record := asset.Record{
		asset.FieldAlbedoTexturePath:   "/anywhere/tex_d.png",
		asset.FieldNormalTexturePath:   "relative/dir/tex_n.png",
		asset.FieldEmissionTexturePath: "tex_e.png",
	}

	require.NoError(t, RewriteTexturePaths(record, "/S", "X"))

	assert.Equal(t, filepath.Join("/S", "X", "tex_d.png"), record[asset.FieldAlbedoTexturePath])
	assert.Equal(t, filepath.Join("/S", "X", "tex_n.png"), record[asset.FieldNormalTexturePath])
	assert.Equal(t, filepath.Join("/S", "X", "tex_e.png"), record[asset.FieldEmissionTexturePath])
}

func TestRewriteTexturePaths_EmissionOptional(t *testing.T) {
	record := asset.Record{
		asset.FieldAlbedoTexturePath: "/a/d.png",
		asset.FieldNormalTexturePath: "/a/n.png",
	}
	require.NoError(t, RewriteTexturePaths(record, "/S", "X"))
	assert.False(t, record.Has(asset.FieldEmissionTexturePath))
}

func TestRewriteTexturePaths_MissingRequired(t *testing.T) {
	tests := []struct {
		name   string
		record asset.Record
	}{
		{"no albedo", asset.Record{asset.FieldNormalTexturePath: "/a/n.png"}},
		{"no normal", asset.Record{asset.FieldAlbedoTexturePath: "/a/d.png"}},
		{"non-string", asset.Record{asset.FieldAlbedoTexturePath: 3, asset.FieldNormalTexturePath: "/a/n.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RewriteTexturePaths(tt.record, "/S", "X")
			require.Error(t, err)
			assert.True(t, errors.IsInvalidRequestError(err))
		})
	}
}

func TestAnnotate_NoMetadata(t *testing.T) {
	tests := []struct {
		name       string
		receptacle any
		want       []string
	}{
		{"not a receptacle candidate", false, []string{"Receptacle"}},
		{"receptacle candidate", true, []string{}},
		{"flag absent", nil, []string{"Receptacle"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := asset.Record{}
			if tt.receptacle != nil {
				record[asset.FieldReceptacleCandidate] = tt.receptacle
			}

			Annotate(record, asset.Metadata{}, false)

			annotations := record[asset.FieldAnnotations].(map[string]any)
			assert.Equal(t, "Undefined", annotations["objectType"])
			assert.Equal(t, "CanPickup", annotations["primaryProperty"])
			assert.Equal(t, tt.want, annotations["secondaryProperties"])
		})
	}
}

func TestAnnotate_WithMetadata(t *testing.T) {
	record := asset.Record{asset.FieldReceptacleCandidate: true}
	meta := asset.Metadata{PrimaryProperty: "Static", SecondaryProperties: []any{"CanOpen", float64(2)}}

	Annotate(record, meta, true)

	annotations := record[asset.FieldAnnotations].(map[string]any)
	assert.Equal(t, "Undefined", annotations["objectType"])
	assert.Equal(t, "Static", annotations["primaryProperty"])
	assert.Equal(t, []any{"CanOpen", float64(2)}, annotations["secondaryProperties"])
}
