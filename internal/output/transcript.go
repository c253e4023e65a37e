/*
PURPOSE:
  Append-only transcript sink for deliberation rounds.
  Writes one JSON line per completed stage, keyed by round ID and
  stage name, with a timestamp.

REQUIREMENTS:
  User-specified:
  - Append-only; the sink never reads its own prior writes.
  - One record per completed stage with the stage's full output.

  Implementation-discovered:
  - JSON Lines is append-friendly and crash-resilient, unlike a
    single JSON array.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (once per completed stage)
  - Consumes: arbitrary per-stage payloads

ERROR HANDLING:
  - Returns error on open or write failure; callers log and continue,
    a transcript failure never aborts a round.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder.
  - Thread-safe; open with O_APPEND.

USAGE:
  w, err := output.NewTranscriptWriter("transcript.jsonl")
  w.WriteStage(roundID, "stage1", payload)
  w.Close()

RELATED FILES:
  - internal/engine/runner.go

MAINTENANCE:
  - Record shape changes break the installed JQ functions; update
    internal/assets/functions alongside.
*/

package output

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// StageRecord is one transcript line.
type StageRecord struct {
	RoundID   string      `json:"round_id"`
	Stage     string      `json:"stage"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// TranscriptWriter appends stage records to a JSON Lines file.
type TranscriptWriter struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewTranscriptWriter opens (or creates) the transcript file for append.
func NewTranscriptWriter(path string) (*TranscriptWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &TranscriptWriter{
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// WriteStage appends one stage record. It is thread-safe.
func (tw *TranscriptWriter) WriteStage(roundID, stage string, data interface{}) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	return tw.encoder.Encode(StageRecord{
		RoundID:   roundID,
		Stage:     stage,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

// Close closes the underlying file.
func (tw *TranscriptWriter) Close() error {
	return tw.file.Close()
}
