package testing

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/engine"
)

// SourceOption customizes a fixture source directory.
type SourceOption func(*sourceFixture)

type sourceFixture struct {
	encoding   asset.Encoding
	receptacle bool
	emission   bool
	metadata   string
	extras     bool
}

// WithEncoding writes the record in enc instead of JSON.
func WithEncoding(enc asset.Encoding) SourceOption {
	return func(f *sourceFixture) { f.encoding = enc }
}

// WithReceptacleCandidate sets the record's receptacleCandidate flag.
func WithReceptacleCandidate(v bool) SourceOption {
	return func(f *sourceFixture) { f.receptacle = v }
}

// WithEmissionTexture adds an emissionTexturePath field and file.
func WithEmissionTexture() SourceOption {
	return func(f *sourceFixture) { f.emission = true }
}

// WithMetadata writes body as the metadata file.
func WithMetadata(body string) SourceOption {
	return func(f *sourceFixture) { f.metadata = body }
}

// WithCopyExcludedFiles adds an images directory and a raw .obj mesh.
func WithCopyExcludedFiles() SourceOption {
	return func(f *sourceFixture) { f.extras = true }
}

// WriteSource writes a prepared asset for id into dir, creating dir if needed,
// and returns dir. Texture paths in the record point at an unrelated absolute
// directory, as they do for assets prepared on another machine.
func WriteSource(t *testing.T, dir string, id asset.ID, opts ...SourceOption) string {
	t.Helper()

	f := &sourceFixture{encoding: asset.EncodingJSON}
	for _, opt := range opts {
		opt(f)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create source dir: %v", err)
	}

	record := asset.Record{
		asset.FieldAction:              "CreateRuntimeAsset",
		asset.FieldName:                string(id),
		asset.FieldReceptacleCandidate: f.receptacle,
		asset.FieldAlbedoTexturePath:   "/prep/" + string(id) + "/albedo.png",
		asset.FieldNormalTexturePath:   "/prep/" + string(id) + "/normal.png",
	}
	files := []string{"albedo.png", "normal.png", "mesh.bin"}
	if f.emission {
		record[asset.FieldEmissionTexturePath] = "/prep/" + string(id) + "/emission.png"
		files = append(files, "emission.png")
	}
	for _, name := range files {
		writeFile(t, filepath.Join(dir, name), name)
	}

	if err := asset.Save(record, filepath.Join(dir, f.encoding.Filename(id))); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	if f.metadata != "" {
		writeFile(t, filepath.Join(dir, asset.MetadataFilename), f.metadata)
	}
	if f.extras {
		writeFile(t, filepath.Join(dir, "images", "thumb.png"), "thumb")
		writeFile(t, filepath.Join(dir, "raw.obj"), "v 0 0 0")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// FakeEngine is an in-memory engine.Controller that records every load.
type FakeEngine struct {
	Dir string

	mu      sync.Mutex
	loads   []asset.Record
	failIDs map[string]string
	err     error
}

var _ engine.Controller = (*FakeEngine)(nil)

// NewFakeEngine creates a fake engine rooted at a fresh temp dir.
func NewFakeEngine(t *testing.T) *FakeEngine {
	t.Helper()
	return &FakeEngine{Dir: t.TempDir(), failIDs: make(map[string]string)}
}

// FailAsset makes loads of the asset named name report failure with message.
func (e *FakeEngine) FailAsset(name, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failIDs[name] = message
}

// FailTransport makes every load return err.
func (e *FakeEngine) FailTransport(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// BaseDir implements engine.Controller.
func (e *FakeEngine) BaseDir() string {
	return e.Dir
}

// Load implements engine.Controller.
func (e *FakeEngine) Load(ctx context.Context, record asset.Record) (engine.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err != nil {
		return engine.Result{}, e.err
	}
	e.loads = append(e.loads, record.Clone())

	name, _ := record.String(asset.FieldName)
	if msg, ok := e.failIDs[name]; ok {
		return engine.Result{Success: false, ErrorMessage: msg}, nil
	}
	return engine.Result{Success: true}, nil
}

// Loads returns the records loaded so far.
func (e *FakeEngine) Loads() []asset.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]asset.Record(nil), e.loads...)
}

// LastLoad returns the most recent record, or nil.
func (e *FakeEngine) LastLoad() asset.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.loads) == 0 {
		return nil
	}
	return e.loads[len(e.loads)-1]
}
