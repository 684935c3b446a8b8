package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/assetstage/stage"
)

// ProgressEvent is one JSON line emitted by JSONProgress.
type ProgressEvent struct {
	Type      string                 `json:"type"` // "batch_started", "asset", "batch_finished"
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// CLIProgress renders batch progress on a terminal using pterm.
type CLIProgress struct {
	verbosity int
	total     int
}

// NewCLIProgress creates a terminal progress sink.
func NewCLIProgress(verbosity int) *CLIProgress {
	return &CLIProgress{verbosity: verbosity}
}

// BatchStarted implements stage.ProgressSink.
func (p *CLIProgress) BatchStarted(batchID string, total int) {
	p.total = total
	pterm.Printf("📦 Publishing %s assets\n", pterm.LightCyan(fmt.Sprintf("%d", total)))
	if p.verbosity >= 1 {
		pterm.Info.Printf("batch %s\n", batchID)
	}
}

// AssetPublished implements stage.ProgressSink.
func (p *CLIProgress) AssetPublished(index int, outcome stage.Outcome) {
	counter := fmt.Sprintf("[%d/%d]", index+1, p.total)
	switch {
	case outcome.Err != nil:
		pterm.Error.Printf("%s %s: %v\n", counter, outcome.ID, outcome.Err)
	case !outcome.Result.Success:
		pterm.Warning.Printf("%s %s: engine rejected asset: %s\n", counter, outcome.ID, outcome.Result.ErrorMessage)
	default:
		pterm.Printf("✅ %s %s\n", counter, pterm.Green(string(outcome.ID)))
	}
}

// BatchFinished implements stage.ProgressSink.
func (p *CLIProgress) BatchFinished(batchID string, allSucceeded bool, elapsed time.Duration) {
	if allSucceeded {
		pterm.Success.Printf("All assets published in %s\n", elapsed.Round(time.Millisecond))
		return
	}
	pterm.Error.Printf("Some assets failed to publish (%s)\n", elapsed.Round(time.Millisecond))
}

// JSONProgress writes batch progress as JSON lines for machine consumption.
type JSONProgress struct {
	encoder *json.Encoder
}

// NewJSONProgress creates a JSON lines progress sink writing to w.
func NewJSONProgress(w io.Writer) *JSONProgress {
	return &JSONProgress{encoder: json.NewEncoder(w)}
}

func (p *JSONProgress) emit(eventType string, data map[string]interface{}) {
	p.encoder.Encode(ProgressEvent{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// BatchStarted implements stage.ProgressSink.
func (p *JSONProgress) BatchStarted(batchID string, total int) {
	p.emit("batch_started", map[string]interface{}{
		"batch_id": batchID,
		"total":    total,
	})
}

// AssetPublished implements stage.ProgressSink.
func (p *JSONProgress) AssetPublished(index int, outcome stage.Outcome) {
	p.emit("asset", outcomeData(index, outcome))
}

// BatchFinished implements stage.ProgressSink.
func (p *JSONProgress) BatchFinished(batchID string, allSucceeded bool, elapsed time.Duration) {
	p.emit("batch_finished", map[string]interface{}{
		"batch_id":      batchID,
		"all_succeeded": allSucceeded,
		"duration_ms":   elapsed.Milliseconds(),
	})
}

func outcomeData(index int, outcome stage.Outcome) map[string]interface{} {
	data := map[string]interface{}{
		"index":     index,
		"id":        string(outcome.ID),
		"success":   outcome.Succeeded(),
		"engine_ok": outcome.Result.Success,
	}
	if outcome.Result.ErrorMessage != "" {
		data["error_message"] = outcome.Result.ErrorMessage
	}
	if outcome.Err != nil {
		data["error"] = outcome.Err.Error()
	}
	return data
}
