/*
PURPOSE:
  Writes aggregate ranking tables to a CSV file.
  Ensures data integrity by flushing writes immediately.

REQUIREMENTS:
  User-specified:
  - One row per backend per round, rank order preserved.

  Implementation-discovered:
  - Flush after every write (crash resilience).
  - Mutex for concurrent rounds sharing one writer.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Consumes: model.AggregateEntry

ERROR HANDLING:
  - Returns error on file creation or write failure.

USAGE:
  w, err := output.NewCSVWriter("aggregate.csv")
  w.WriteAggregate(roundID, entries)
  w.Close()

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update header and record mapping together when AggregateEntry changes.
*/

package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/daryltucker/council-runner/internal/model"
)

// CSVWriter handles writing aggregate tables to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter.
// It overwrites the file if it exists.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)

	header := []string{
		"round_id", "timestamp", "rank", "backend",
		"average_score", "average_position", "vote_count", "self_votes_excluded",
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// WriteAggregate writes one row per aggregate entry. It is thread-safe.
func (cw *CSVWriter) WriteAggregate(roundID string, entries []model.AggregateEntry) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	ts := time.Now().UTC().Format("2006-01-02T15:04:05Z07:00")
	for _, e := range entries {
		record := []string{
			roundID,
			ts,
			fmt.Sprintf("%d", e.Rank),
			e.Backend,
			formatMean(e.AverageScore),
			formatMean(e.AveragePosition),
			fmt.Sprintf("%d", e.VoteCount),
			fmt.Sprintf("%t", e.SelfVotesExcluded),
		}
		if err := cw.writer.Write(record); err != nil {
			return err
		}
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

func formatMean(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}
