/*
PURPOSE:
  Defines the core data structures used throughout Council Runner.
  These models represent one deliberation round: backend responses,
  anonymized peer rankings, the aggregate league table, and the
  chairman's synthesis.

REQUIREMENTS:
  User-specified:
  - Track which backend produced each response and ranking.
  - Keep the label->backend mapping round-scoped.
  - Record vote counts and whether self-votes were excluded.

  Implementation-discovered:
  - Need JSON tags for the transcript sink.
  - Nil pointers distinguish "no observations" from a zero mean.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/verify, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs). Failure is represented in-band
    (ModelResponse.Err, FetchedItem.Err, SynthesisResult.Failed).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Entities are immutable after creation; each round owns what it creates.

RELATED FILES:
  - internal/output/transcript.go
  - internal/engine/runner.go

MAINTENANCE:
  - Update when adding new per-stage metadata to persist.
*/

package model

import (
	"time"
)

// Message is a single chat message sent to a backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryRequest describes one request to one backend. Immutable once issued.
type QueryRequest struct {
	Backend  string        `json:"backend"`
	Messages []Message     `json:"messages"`
	Timeout  time.Duration `json:"timeout"`
}

// Usage carries token/cost metadata when the router reports it.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalCost        float64 `json:"total_cost,omitempty"`
}

// ModelResponse is the outcome of one QueryRequest. A backend that
// errored or timed out carries Err; its absence from a stage's successful
// set is a normal outcome, never a stage-fatal one.
type ModelResponse struct {
	Backend string `json:"backend"`
	Content string `json:"content"`
	Usage   Usage  `json:"usage,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Candidate is a backend's successful answer in Stage 1.
// OriginalResponse preserves the pre-normalization text when style
// normalization rewrote Response.
type Candidate struct {
	Backend          string `json:"backend"`
	Response         string `json:"response"`
	OriginalResponse string `json:"original_response,omitempty"`
}

// ParsedRanking is the structured result of parsing a reviewer's free text.
// Both fields may legitimately be empty (degraded but non-fatal).
type ParsedRanking struct {
	Ranking []string           `json:"ranking"`
	Scores  map[string]float64 `json:"scores"`
}

// RankingSubmission is one reviewer's Stage 2 output.
type RankingSubmission struct {
	Reviewer string        `json:"reviewer"`
	Raw      string        `json:"raw"`
	Parsed   ParsedRanking `json:"parsed"`
}

// AggregateEntry is one backend's row in the aggregate league table.
// AveragePosition and AverageScore are nil when that backend received
// no retained observations of that kind.
type AggregateEntry struct {
	Backend           string   `json:"backend"`
	AveragePosition   *float64 `json:"average_position"`
	AverageScore      *float64 `json:"average_score"`
	VoteCount         int      `json:"vote_count"`
	SelfVotesExcluded bool     `json:"self_votes_excluded"`
	Rank              int      `json:"rank"`
}

// SynthesisResult is the terminal artifact of a round. Failed marks the
// explicit "synthesis unavailable" outcome; it is reportable, not fatal.
type SynthesisResult struct {
	Backend  string `json:"backend"`
	Response string `json:"response"`
	Failed   bool   `json:"failed,omitempty"`
}

// FetchedItem is one file retrieved from a snapshot. Created by one fetch
// call, immutable, consumed once by the prompt builder. Err and Truncated
// degrade in-band; a batch never aborts because of one item.
type FetchedItem struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
	Err       string `json:"error,omitempty"`
}

// RoundResult is the full output of one deliberation round.
type RoundResult struct {
	RoundID        string              `json:"round_id"`
	Prompt         string              `json:"prompt"`
	Title          string              `json:"title,omitempty"`
	Stage1         []Candidate         `json:"stage1"`
	Stage2         []RankingSubmission `json:"stage2"`
	Aggregate      []AggregateEntry    `json:"aggregate"`
	Stage3         SynthesisResult     `json:"stage3"`
	LabelToBackend map[string]string   `json:"label_to_backend"`
	FailedBackends []string            `json:"failed_backends,omitempty"`
	Warnings       []string            `json:"warnings,omitempty"`
}

// AllFailed reports whether no backend produced a Stage 1 candidate,
// in which case Stage 2 and 3 never ran.
func (r *RoundResult) AllFailed() bool {
	return len(r.Stage1) == 0
}
