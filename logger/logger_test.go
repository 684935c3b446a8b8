package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
	}{
		{name: "JSON output mode", jsonOutput: true, verbosity: 0},
		{name: "Console output mode", jsonOutput: false, verbosity: 1},
		{name: "Console debug", jsonOutput: false, verbosity: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			if err := Initialize(tt.jsonOutput, tt.verbosity); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			if Logger == nil {
				t.Fatal("Initialize() did not set global Logger")
			}
			if JSONOutput != tt.jsonOutput {
				t.Errorf("Initialize() JSONOutput = %v, want %v", JSONOutput, tt.jsonOutput)
			}

			Logger.Sync()
			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestInitialize_LogLevelEnvOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	defer func() { Logger = zap.NewNop().Sugar() }()

	if err := Initialize(false, VerbosityUser); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !Logger.Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("LOG_LEVEL=debug should enable debug logging regardless of verbosity")
	}
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{-1, zapcore.WarnLevel},
		{VerbosityUser, zapcore.WarnLevel},
		{VerbosityInfo, zapcore.InfoLevel},
		{VerbosityDebug, zapcore.DebugLevel},
		{7, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		if got := VerbosityToLevel(tt.verbosity); got != tt.want {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}

func TestLevelName(t *testing.T) {
	if got := LevelName(0); got != "User" {
		t.Errorf("LevelName(0) = %q", got)
	}
	if got := LevelName(1); got != "Info (-v)" {
		t.Errorf("LevelName(1) = %q", got)
	}
	if got := LevelName(5); got != "Debug (-vv)" {
		t.Errorf("LevelName(5) = %q", got)
	}
}

func TestFieldsFromContext(t *testing.T) {
	ctx := context.Background()
	if fields := FieldsFromContext(ctx); len(fields) != 0 {
		t.Errorf("expected no fields for empty context, got %v", fields)
	}

	ctx = WithBatchID(ctx, "batch-1")
	ctx = WithAssetID(ctx, "chair-01")
	ctx = WithComponent(ctx, "stage")

	fields := FieldsFromContext(ctx)
	want := []interface{}{FieldBatchID, "batch-1", FieldAssetID, "chair-01", FieldComponent, "stage"}
	if len(fields) != len(want) {
		t.Fatalf("got %d fields, want %d: %v", len(fields), len(want), fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("field %d = %v, want %v", i, fields[i], want[i])
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core).Sugar()

	ctx := WithAssetID(WithBatchID(context.Background(), "b-42"), "lamp")
	LoggerFromContext(ctx, base).Infow("published")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields[FieldBatchID] != "b-42" {
		t.Errorf("batch_id = %v, want b-42", fields[FieldBatchID])
	}
	if fields[FieldAssetID] != "lamp" {
		t.Errorf("asset_id = %v, want lamp", fields[FieldAssetID])
	}
}

func TestLoggerFromContext_NilBaseUsesGlobal(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	prev := Logger
	Logger = zap.New(core).Sugar()
	defer func() { Logger = prev }()

	LoggerFromContext(context.Background(), nil).Infow("hello")

	if logs.Len() != 1 {
		t.Errorf("expected global logger to receive entry, got %d", logs.Len())
	}
}

func TestChildLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	child := ChildLogger(zap.New(core).Sugar(), FieldStrategy, "copy")
	child.Infow("copy finished")

	if got := logs.All()[0].ContextMap()[FieldStrategy]; got != "copy" {
		t.Errorf("strategy field = %v, want copy", got)
	}
}
