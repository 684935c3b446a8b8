package asset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/assetstage/errors"
)

func sampleRecord() Record {
	return Record{
		FieldAction:              "CreateRuntimeAsset",
		FieldName:                "chair",
		FieldReceptacleCandidate: false,
		FieldAlbedoTexturePath:   "/prep/chair/albedo.png",
		FieldNormalTexturePath:   "/prep/chair/normal.png",
		"yRotOffset":             1.5,
		"colliders":              []any{"box", "mesh"},
		"physicalProperties":     map[string]any{"mass": 2.25},
	}
}

func TestSaveLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "chair.json")

	require.NoError(t, Save(sampleRecord(), path), "JSON save creates parent directories")

	loaded, err := LoadPath(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRecord(), loaded)
}

func TestSave_JSONIsIndented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lamp.json")
	require.NoError(t, Save(Record{"name": "lamp", "url": "a<b>&c"}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "{\n  \"name\": \"lamp\""), "got %q", text)
	assert.Contains(t, text, `"a<b>&c"`, "HTML characters are not escaped")
}

func TestSaveLoad_PickleGz(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chair.pkl.gz")

	require.NoError(t, Save(sampleRecord(), path))

	loc, err := Locate(dir, "chair")
	require.NoError(t, err)
	require.Equal(t, EncodingPickleGz, loc.Encoding)

	loaded, err := Load(loc)
	require.NoError(t, err)
	assert.Equal(t, sampleRecord(), loaded)
}

func TestSaveLoad_PickleGzNone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.pkl.gz")
	require.NoError(t, Save(Record{"emissionTexturePath": nil}, path))

	loaded, err := LoadPath(path)
	require.NoError(t, err)
	assert.True(t, loaded.Has(FieldEmissionTexturePath))
	assert.Nil(t, loaded[FieldEmissionTexturePath])
}

func TestLoadExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(sampleRecord(), filepath.Join(dir, "chair.json")))

	loaded, err := LoadExisting(dir, "chair")
	require.NoError(t, err)
	assert.Equal(t, "chair", loaded[FieldName])

	_, err = LoadExisting(dir, "table")
	assert.True(t, errors.IsAssetNotFound(err))
}

func TestSaveLoad_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()

	err := Save(sampleRecord(), filepath.Join(dir, "chair.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsUnsupportedFormat(err))

	_, err = LoadPath(filepath.Join(dir, "chair.obj"))
	require.Error(t, err)
	assert.True(t, errors.IsUnsupportedFormat(err))

	_, err = Load(Location{Path: "x", Encoding: Encoding(42)})
	assert.True(t, errors.IsUnsupportedFormat(err))
}

func TestLoad_JSONNotAnObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chair.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0644))

	_, err := LoadPath(path)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestLoad_CorruptPickle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chair.pkl.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0644))

	_, err := LoadPath(path)
	assert.Error(t, err)
}

func TestNormalizePickle(t *testing.T) {
	in := map[interface{}]interface{}{
		"list":  []interface{}{map[interface{}]interface{}{"k": "v"}},
		int64(3): "three",
	}

	out, ok := normalizePickle(in).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "three", out["3"])
	assert.Equal(t, []any{map[string]any{"k": "v"}}, out["list"])
}
