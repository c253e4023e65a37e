/*
PURPOSE:
  High-level runner that orchestrates one deliberation round:
  Stage 1 fan-out -> optional style normalization -> Stage 2 peer
  ranking -> aggregation -> Stage 3 synthesis, appending each
  completed stage to the transcript sink.

REQUIREMENTS:
  User-specified:
  - Stage N never begins before all accepted results of stage N-1.
  - Zero Stage 1 successes short-circuits the round with an explicit
    all-failed result; Stage 2 and 3 must not run.

  Implementation-discovered:
  - Transcript/aggregate sink failures are logged and skipped; the
    round result is the product, persistence is best-effort.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli, internal/verify
  - Uses: every other engine file, internal/output sinks

ERROR HANDLING:
  - RunRound returns an error only for caller mistakes (empty prompt);
    backend failure is in the result, per the stage failure policy.

USAGE:
  result, err := eng.RunRound(ctx, prompt)

RELATED FILES:
  - internal/engine/engine.go

MAINTENANCE:
  - New stages must write their transcript record before the next
    stage starts.
*/

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/daryltucker/council-runner/internal/model"
	"github.com/daryltucker/council-runner/internal/output"
	"github.com/daryltucker/council-runner/internal/prompts"
)

const allFailedText = "All models failed to respond. Please try again."

// RunRound executes the full pipeline for one prompt.
func (e *Engine) RunRound(ctx context.Context, prompt string) (*model.RoundResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}

	result := &model.RoundResult{
		RoundID: uuid.New().String()[:8],
		Prompt:  prompt,
	}
	output.Logger.Info("starting deliberation round",
		"round", result.RoundID, "council_size", len(e.Config.CouncilModels), "mode", e.Config.SynthesisMode)

	// Stage 1: collect individual responses.
	messages := []model.Message{{Role: "user", Content: prompt}}
	responses, failed := e.CollectResponses(ctx, e.Config.CouncilModels, messages)
	result.FailedBackends = failed

	for _, resp := range responses {
		result.Stage1 = append(result.Stage1, model.Candidate{
			Backend:  resp.Backend,
			Response: resp.Content,
		})
	}
	e.writeStage(result.RoundID, "stage1", result.Stage1)

	if result.AllFailed() {
		output.Logger.Error("all backends failed in stage 1", "round", result.RoundID)
		result.Stage3 = model.SynthesisResult{
			Backend:  "error",
			Response: allFailedText,
			Failed:   true,
		}
		return result, nil
	}

	// Stage 1.5 (optional): normalize styles before review. The
	// originals remain the synthesis context.
	reviewCandidates := result.Stage1
	if e.Config.StyleNormalization {
		reviewCandidates = e.NormalizeStyles(ctx, result.Stage1)
		e.writeStage(result.RoundID, "stage1.5", reviewCandidates)
	}

	// Stage 2: anonymized peer rankings.
	result.Stage2, result.LabelToBackend = e.CollectRankings(ctx, prompt, reviewCandidates)
	e.writeStage(result.RoundID, "stage2", map[string]interface{}{
		"rankings":         result.Stage2,
		"label_to_backend": result.LabelToBackend,
	})
	if len(result.Stage2) == 0 {
		result.Warnings = append(result.Warnings, "no reviewer produced a ranking")
	}

	// Aggregate league table.
	result.Aggregate = Aggregate(result.Stage2, result.LabelToBackend, e.Config.ExcludeSelfVotes)
	if e.Aggregates != nil {
		if err := e.Aggregates.WriteAggregate(result.RoundID, result.Aggregate); err != nil {
			output.Logger.Error("failed to write aggregate table", "round", result.RoundID, "error", err)
		}
	}

	// Stage 3: chairman synthesis over the original responses.
	result.Stage3 = e.Synthesize(ctx, prompt, result.Stage1, result.Stage2, result.Aggregate)
	e.writeStage(result.RoundID, "stage3", map[string]interface{}{
		"synthesis": result.Stage3,
		"aggregate": result.Aggregate,
	})

	output.Logger.Info("round complete",
		"round", result.RoundID,
		"candidates", len(result.Stage1),
		"rankings", len(result.Stage2),
		"synthesis_failed", result.Stage3.Failed)

	return result, nil
}

// GenerateTitle asks the normalizer backend for a short round title.
// Any failure degrades to a generic title.
func (e *Engine) GenerateTitle(ctx context.Context, prompt string) string {
	messages := []model.Message{{Role: "user", Content: prompts.Title(prompt)}}
	resp := e.Client.Query(ctx, e.Config.NormalizerModel, messages)
	if resp.Err != "" || strings.TrimSpace(resp.Content) == "" {
		return "New Conversation"
	}

	title := strings.Trim(strings.TrimSpace(resp.Content), `"'`)
	if len(title) > 50 {
		title = title[:47] + "..."
	}
	return title
}

func (e *Engine) writeStage(roundID, stage string, data interface{}) {
	if e.Transcript == nil {
		return
	}
	if err := e.Transcript.WriteStage(roundID, stage, data); err != nil {
		output.Logger.Error("failed to write transcript stage",
			"round", roundID, "stage", stage, "error", err)
	}
}
