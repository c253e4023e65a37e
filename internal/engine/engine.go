// Package engine implements the deliberation pipeline: concurrent
// fan-out to the council, anonymized peer ranking, aggregation, and
// chairman synthesis. Each stage is a pure transformation over the
// prior stage's output plus backend calls; no stage mutates another's
// state.
package engine

import (
	"math/rand"
	"time"

	"github.com/daryltucker/council-runner/internal/config"
	"github.com/daryltucker/council-runner/internal/model"
)

// TranscriptSink receives one append per completed stage. The engine
// never reads back what it wrote.
type TranscriptSink interface {
	WriteStage(roundID, stage string, data interface{}) error
}

// AggregateSink receives the final league table of a round.
type AggregateSink interface {
	WriteAggregate(roundID string, entries []model.AggregateEntry) error
}

// Engine runs deliberation rounds. Construct one per process and pass
// it down; it owns no hidden package-level state, so tests get a fresh
// engine each time.
type Engine struct {
	Config config.Config
	Client Querier

	// Transcript and Aggregates are optional sinks; nil disables them.
	Transcript TranscriptSink
	Aggregates AggregateSink

	// Rand drives the anonymization shuffle and reviewer sampling.
	// Tests inject a fixed source.
	Rand *rand.Rand
}

// New creates an Engine with a time-seeded shuffle source.
func New(cfg config.Config, client Querier) *Engine {
	return &Engine{
		Config: cfg,
		Client: client,
		Rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}
