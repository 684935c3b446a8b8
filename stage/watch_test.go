package stage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/engine"
	astest "github.com/teranos/assetstage/internal/testing"
)

func waitPublish(t *testing.T, ch <-chan asset.ID) asset.ID {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for republish")
		return ""
	}
}

func TestSourceWatcher_RepublishesOnChange(t *testing.T) {
	p, eng, _ := newTestPublisher(t)
	src := astest.WriteSource(t, t.TempDir(), "chair")

	w, err := NewSourceWatcher(p, src, []asset.ID{"chair"}, PublishOptions{}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer w.Stop()

	published := make(chan asset.ID, 4)
	w.OnPublish(func(id asset.ID, res engine.Result, err error) {
		assert.NoError(t, err)
		assert.True(t, res.Success)
		published <- id
	})
	w.Start()

	// Several writes in quick succession collapse into one republish.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(src, "albedo.png"), []byte{byte(i)}, 0644))
	}

	assert.Equal(t, asset.ID("chair"), waitPublish(t, published))
	assert.Len(t, eng.Loads(), 1)
	assert.Equal(t, src, w.Source("chair"))
}

func TestSourceWatcher_PerIDSubdir(t *testing.T) {
	p, _, _ := newTestPublisher(t)
	root := t.TempDir()
	astest.WriteSource(t, filepath.Join(root, "a"), "a")
	astest.WriteSource(t, filepath.Join(root, "b"), "b")

	w, err := NewSourceWatcher(p, root, []asset.ID{"a", "b"}, PublishOptions{}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer w.Stop()
	assert.Equal(t, filepath.Join(root, "b"), w.Source("b"))

	published := make(chan asset.ID, 4)
	w.OnPublish(func(id asset.ID, res engine.Result, err error) {
		published <- id
	})
	w.Start()

	require.NoError(t, os.WriteFile(filepath.Join(root, "b", "normal.png"), []byte("new"), 0644))

	assert.Equal(t, asset.ID("b"), waitPublish(t, published))
	select {
	case id := <-published:
		t.Fatalf("unexpected republish of %s", id)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSourceWatcher_Affected(t *testing.T) {
	p, _, _ := newTestPublisher(t)
	root := t.TempDir()
	astest.WriteSource(t, root, "x")
	astest.WriteSource(t, root, "y")
	astest.WriteSource(t, filepath.Join(root, "z"), "z")

	w, err := NewSourceWatcher(p, root, []asset.ID{"x", "y", "z"}, PublishOptions{})
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, []asset.ID{"x"}, w.affected(filepath.Join(root, "x.json")))
	assert.Equal(t, []asset.ID{"y"}, w.affected(filepath.Join(root, "y.pkl.gz")))
	assert.Equal(t, []asset.ID{"x", "y"}, w.affected(filepath.Join(root, "thor_metadata.json")))
	assert.Equal(t, []asset.ID{"z"}, w.affected(filepath.Join(root, "z", "albedo.png")))
	assert.Empty(t, w.affected(filepath.Join(root, "elsewhere", "file")))
}

func TestNewSourceWatcher_InvalidID(t *testing.T) {
	p, _, _ := newTestPublisher(t)
	_, err := NewSourceWatcher(p, t.TempDir(), []asset.ID{"a/b"}, PublishOptions{})
	assert.Error(t, err)
}

func TestSourceWatcher_SetOptions(t *testing.T) {
	p, _, _ := newTestPublisher(t)
	src := astest.WriteSource(t, t.TempDir(), "chair")

	w, err := NewSourceWatcher(p, src, []asset.ID{"chair"}, PublishOptions{}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	defer w.Stop()

	published := make(chan asset.ID, 4)
	w.OnPublish(func(id asset.ID, res engine.Result, err error) {
		assert.NoError(t, err)
		published <- id
	})
	w.SetOptions(PublishOptions{Strategy: StrategyCopy})
	w.Start()

	require.NoError(t, os.WriteFile(filepath.Join(src, "normal.png"), []byte("n2"), 0644))
	waitPublish(t, published)

	state, err := InspectTarget(p.Target("chair"))
	require.NoError(t, err)
	assert.Equal(t, TargetCopied, state.Kind)
}

func TestSourceWatcher_NoPublishAfterStop(t *testing.T) {
	p, eng, _ := newTestPublisher(t)
	src := astest.WriteSource(t, t.TempDir(), "chair")

	w, err := NewSourceWatcher(p, src, []asset.ID{"chair"}, PublishOptions{})
	require.NoError(t, err)

	called := false
	w.OnPublish(func(asset.ID, engine.Result, error) { called = true })

	// A timer that already fired runs flush after Stop returned.
	w.mu.Lock()
	w.pending["chair"] = struct{}{}
	w.mu.Unlock()
	require.NoError(t, w.Stop())
	w.flush()

	assert.False(t, called)
	assert.Empty(t, eng.Loads())
	_, err = os.Lstat(p.Target("chair"))
	assert.True(t, os.IsNotExist(err))
}
