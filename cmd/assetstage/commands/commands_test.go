package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/assetstage/am"
	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/errors"
	astest "github.com/teranos/assetstage/internal/testing"
	"github.com/teranos/assetstage/logger"
	"github.com/teranos/assetstage/stage"
)

// testCommand returns a command whose output lands in the returned buffer.
func testCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)
	return cmd, &out
}

// useConfig points the am package at a config file for the duration of the test.
func useConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "am.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	am.SetConfigFile(path)
	t.Cleanup(func() {
		am.SetConfigFile("")
		am.Reset()
	})
}

// engineServer accepts every load except names listed in reject.
func engineServer(t *testing.T, reject ...string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			ok := true
			for _, name := range reject {
				if msg[asset.FieldName] == name {
					ok = false
				}
			}
			reply := map[string]any{"lastActionSuccess": ok}
			if !ok {
				reply["errorMessage"] = "rejected"
			}
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func engineConfig(baseDir, url string) string {
	return fmt.Sprintf("[engine]\nbase_dir = %q\nurl = %q\n", baseDir, url)
}

func decodeEvents(t *testing.T, out *bytes.Buffer) []ProgressEvent {
	t.Helper()
	var events []ProgressEvent
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		// Progress events are compact lines; indented results are skipped.
		line := scanner.Text()
		if !strings.HasPrefix(line, `{"`) {
			continue
		}
		var ev ProgressEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev), line)
		events = append(events, ev)
	}
	return events
}

func TestResolveStrategy(t *testing.T) {
	cfg := &am.Config{Staging: am.StagingConfig{Strategy: "copy"}}

	s, err := resolveStrategy(cfg, false, false)
	require.NoError(t, err)
	assert.Equal(t, stage.StrategyCopy, s, "falls back to configured strategy")

	s, err = resolveStrategy(cfg, false, true)
	require.NoError(t, err)
	assert.Equal(t, stage.StrategySymlink, s)

	_, err = resolveStrategy(cfg, true, true)
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"chair", "table"})
	require.NoError(t, err)
	assert.Equal(t, []asset.ID{"chair", "table"}, ids)

	_, err = parseIDs([]string{"chair", "../etc"})
	assert.Error(t, err)
}

func TestBatchError(t *testing.T) {
	assert.NoError(t, batchError(2, true, nil))
	assert.Error(t, batchError(2, false, nil))

	err := batchError(2, false, errors.ErrAssetNotFound)
	assert.True(t, errors.Is(err, errors.ErrAssetNotFound))
}

func TestJSONProgress(t *testing.T) {
	var out bytes.Buffer
	p := NewJSONProgress(&out)

	p.BatchStarted("b1", 2)
	p.AssetPublished(0, stage.Outcome{ID: "chair"})
	p.AssetPublished(1, stage.Outcome{ID: "table", Err: errors.New("boom")})
	p.BatchFinished("b1", false, 0)

	events := decodeEvents(t, &out)
	require.Len(t, events, 4)
	assert.Equal(t, "batch_started", events[0].Type)
	assert.EqualValues(t, 2, events[0].Data["total"])
	assert.Equal(t, "asset", events[2].Type)
	assert.Equal(t, "table", events[2].Data["id"])
	assert.Equal(t, "boom", events[2].Data["error"])
	assert.Equal(t, false, events[3].Data["all_succeeded"])
}

func TestPrintOutcomes(t *testing.T) {
	outcomes := []stage.Outcome{
		{ID: "chair"},
		{ID: "table", Err: errors.New("missing")},
	}
	outcomes[0].Result.Success = true

	var out bytes.Buffer
	require.NoError(t, printOutcomes(&out, outcomes, false))
	assert.Contains(t, out.String(), "chair")
	assert.Contains(t, out.String(), "error: missing")

	out.Reset()
	require.NoError(t, printOutcomes(&out, outcomes, true))
	var views []outcomeView
	require.NoError(t, json.Unmarshal(out.Bytes(), &views))
	require.Len(t, views, 2)
	assert.True(t, views[0].Success)
	assert.Equal(t, "missing", views[1].Error)
}

func TestRunLocate(t *testing.T) {
	dir := astest.WriteSource(t, t.TempDir(), "chair", astest.WithEncoding(asset.EncodingPickleGz))

	locateSourceFlag = dir
	t.Cleanup(func() { locateSourceFlag = "" })

	cmd, out := testCommand()
	require.NoError(t, runLocate(cmd, []string{"chair"}))
	assert.Equal(t, filepath.Join(dir, "chair.pkl.gz")+"\tpkl.gz\n", out.String())

	err := runLocate(cmd, []string{"table"})
	assert.True(t, errors.IsAssetNotFound(err))
}

func TestWriteConfig(t *testing.T) {
	cfg := &am.Config{Engine: am.EngineConfig{URL: "ws://e/step"}}

	for _, format := range []string{"toml", "json", "yaml"} {
		var out bytes.Buffer
		require.NoError(t, writeConfig(&out, cfg, format), format)
		assert.Contains(t, out.String(), "ws://e/step", format)
	}

	var out bytes.Buffer
	assert.Error(t, writeConfig(&out, cfg, "ini"))
}

func TestRunPublish_EndToEnd(t *testing.T) {
	baseDir := t.TempDir()
	source := astest.WriteSource(t, t.TempDir(), "chair")
	astest.WriteSource(t, source, "lamp")
	useConfig(t, engineConfig(baseDir, engineServer(t, "lamp")))

	publishSourceFlag = source
	publishJSONFlag = true
	publishResultsFlag = true
	t.Cleanup(func() {
		publishSourceFlag = ""
		publishJSONFlag = false
		publishResultsFlag = false
	})

	cmd, out := testCommand()
	err := runPublish(cmd, []string{"chair", "lamp"})
	require.Error(t, err, "an engine rejection fails the command")
	assert.False(t, errors.IsAssetNotFound(err))

	target := filepath.Join(baseDir, stage.DefaultStagingDirName, "chair")
	info, err := os.Lstat(target)
	require.NoError(t, err)
	assert.True(t, info.Mode()&os.ModeSymlink != 0)

	raw := out.String()
	events := decodeEvents(t, out)
	require.NotEmpty(t, events)
	assert.Equal(t, "batch_started", events[0].Type)
	assert.Equal(t, "batch_finished", events[len(events)-1].Type)
	assert.Contains(t, raw, `"error_message": "rejected"`)
}

func TestPublish_VerboseFromRootCount(t *testing.T) {
	baseDir := t.TempDir()
	source := astest.WriteSource(t, t.TempDir(), "chair")
	useConfig(t, engineConfig(baseDir, engineServer(t)))

	core, logs := observer.New(zapcore.InfoLevel)
	prev := logger.Logger
	logger.Logger = zap.New(core).Sugar()

	root := &cobra.Command{Use: "assetstage", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().CountP("verbose", "v", "Increase output verbosity")
	root.AddCommand(PublishCmd)
	t.Cleanup(func() {
		root.RemoveCommand(PublishCmd)
		logger.Logger = prev
		publishSourceFlag = ""
	})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"publish", "-v", "chair", "--source", source})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Equal(t, 1, verbosity(PublishCmd))
	assert.Equal(t, 1, logs.FilterMessage("Publishing asset to staging area").FilterLevelExact(zapcore.InfoLevel).Len())
}

func TestRunStatusAndUnpublish(t *testing.T) {
	baseDir := t.TempDir()
	source := astest.WriteSource(t, t.TempDir(), "chair")
	useConfig(t, engineConfig(baseDir, engineServer(t)))

	publishSourceFlag = source
	t.Cleanup(func() { publishSourceFlag = "" })

	cmd, _ := testCommand()
	require.NoError(t, runPublish(cmd, []string{"chair"}))

	statusJSONFlag = true
	t.Cleanup(func() { statusJSONFlag = false })

	cmd, out := testCommand()
	require.NoError(t, runStatus(cmd, nil))
	var entries []stage.Entry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, asset.ID("chair"), entries[0].ID)
	assert.Equal(t, "linked", entries[0].Kind)

	cmd, out = testCommand()
	require.NoError(t, runUnpublish(cmd, []string{"chair"}))
	assert.Contains(t, out.String(), "Unpublished chair")
	assert.FileExists(t, filepath.Join(source, "chair.json"), "source is untouched")

	cmd, out = testCommand()
	require.NoError(t, runStatus(cmd, nil))
	assert.Equal(t, "[]\n", out.String())
}

func TestRunPublish_RequiresEngineBaseDir(t *testing.T) {
	useConfig(t, "[engine]\nurl = \"ws://127.0.0.1:1/step\"\n")

	publishSourceFlag = t.TempDir()
	t.Cleanup(func() { publishSourceFlag = "" })

	cmd, _ := testCommand()
	err := runPublish(cmd, []string{"chair"})
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}
