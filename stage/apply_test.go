package stage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkfile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0644))
}

func TestInspectTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.Mkdir(src, 0755))
	canonical, err := CanonicalPath(src)
	require.NoError(t, err)

	state, err := InspectTarget(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, Absent(), state)

	copied := filepath.Join(dir, "copied")
	require.NoError(t, os.Mkdir(copied, 0755))
	state, err = InspectTarget(copied)
	require.NoError(t, err)
	assert.Equal(t, Copied(), state)

	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(src, link))
	state, err = InspectTarget(link)
	require.NoError(t, err)
	assert.Equal(t, Linked(canonical), state)

	dangling := filepath.Join(dir, "dangling")
	require.NoError(t, os.Symlink("/nowhere/at/all", dangling))
	state, err = InspectTarget(dangling)
	require.NoError(t, err)
	assert.Equal(t, Linked("/nowhere/at/all"), state)
}

func TestApplyPlan_CopyExcludes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	mkfile(t, filepath.Join(src, "chair.json"))
	mkfile(t, filepath.Join(src, "albedo.png"))
	mkfile(t, filepath.Join(src, "raw.obj"))
	mkfile(t, filepath.Join(src, "thor_metadata.json"))
	mkfile(t, filepath.Join(src, "images", "thumb.png"))
	mkfile(t, filepath.Join(src, "lods", "lod1.obj"))
	mkfile(t, filepath.Join(src, "lods", "lod1.bin"))

	target := filepath.Join(dir, "target")
	plan := PlanReconcile(Absent(), StrategyCopy, src)
	require.NoError(t, ApplyPlan(target, src, plan))

	assert.FileExists(t, filepath.Join(target, "chair.json"))
	assert.FileExists(t, filepath.Join(target, "albedo.png"))
	assert.FileExists(t, filepath.Join(target, "lods", "lod1.bin"))
	assert.NoFileExists(t, filepath.Join(target, "raw.obj"))
	assert.NoFileExists(t, filepath.Join(target, "lods", "lod1.obj"))
	assert.NoFileExists(t, filepath.Join(target, "thor_metadata.json"))
	assert.NoDirExists(t, filepath.Join(target, "images"))
}

func TestApplyPlan_CopyFollowsLinksInSource(t *testing.T) {
	dir := t.TempDir()
	shared := filepath.Join(dir, "shared")
	mkfile(t, filepath.Join(shared, "normal.png"))

	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.Symlink(filepath.Join(shared, "normal.png"), filepath.Join(src, "normal.png")))

	target := filepath.Join(dir, "target")
	require.NoError(t, ApplyPlan(target, src, PlanReconcile(Absent(), StrategyCopy, src)))

	info, err := os.Lstat(filepath.Join(target, "normal.png"))
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular(), "links inside the source are copied as files")
}

func TestApplyPlan_ReplaceLinkKeepsOldSource(t *testing.T) {
	dir := t.TempDir()
	oldSrc := filepath.Join(dir, "old")
	newSrc := filepath.Join(dir, "new")
	mkfile(t, filepath.Join(oldSrc, "a.png"))
	mkfile(t, filepath.Join(newSrc, "b.png"))

	target := filepath.Join(dir, "target")
	require.NoError(t, os.Symlink(oldSrc, target))

	current, err := InspectTarget(target)
	require.NoError(t, err)
	canonicalNew, err := CanonicalPath(newSrc)
	require.NoError(t, err)

	require.NoError(t, ApplyPlan(target, newSrc, PlanReconcile(current, StrategySymlink, canonicalNew)))

	state, err := InspectTarget(target)
	require.NoError(t, err)
	assert.Equal(t, Linked(canonicalNew), state)
	assert.FileExists(t, filepath.Join(oldSrc, "a.png"), "removing a link leaves its source intact")
}
