/*
PURPOSE:
  Stage 3: the chairman backend produces the round's final text from
  the original prompt, all prior stage outputs, and the aggregate
  table. Two mutually exclusive modes: consensus (one best answer) and
  debate (preserve disagreements and trade-offs).

REQUIREMENTS:
  User-specified:
  - The mode comes from validated configuration; it must never fall
    back to the other mode silently.
  - Chairman failure is a reportable terminal result, not an error.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Uses: Querier, internal/prompts

RELATED FILES:
  - internal/prompts/prompts.go
*/

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/daryltucker/council-runner/internal/model"
	"github.com/daryltucker/council-runner/internal/output"
	"github.com/daryltucker/council-runner/internal/prompts"
)

// synthesisFailureText is the explicit "synthesis unavailable" result.
const synthesisFailureText = "Error: Unable to generate final synthesis."

// Synthesize queries the chairman once and returns the terminal
// artifact of the round.
func (e *Engine) Synthesize(ctx context.Context, userQuery string, stage1 []model.Candidate, stage2 []model.RankingSubmission, aggregate []model.AggregateEntry) model.SynthesisResult {
	var stage1Sections []string
	for _, c := range stage1 {
		stage1Sections = append(stage1Sections, fmt.Sprintf("Model: %s\nResponse: %s", c.Backend, c.Response))
	}

	var stage2Sections []string
	for _, s := range stage2 {
		stage2Sections = append(stage2Sections, fmt.Sprintf("Model: %s\nRanking: %s", s.Reviewer, s.Raw))
	}

	rankingsContext := ""
	if len(aggregate) > 0 {
		var rows []string
		for _, entry := range aggregate {
			score := "N/A"
			if entry.AverageScore != nil {
				score = fmt.Sprintf("%.2f", *entry.AverageScore)
			}
			rows = append(rows, fmt.Sprintf("  #%d. %s (avg score: %s, votes: %d)",
				entry.Rank, entry.Backend, score, entry.VoteCount))
		}
		rankingsContext = "\n\nAGGREGATE RANKINGS (after excluding self-votes):\n" + strings.Join(rows, "\n")
	}

	prompt := prompts.Chairman(
		userQuery,
		strings.Join(stage1Sections, "\n\n"),
		strings.Join(stage2Sections, "\n\n"),
		rankingsContext,
		prompts.ModeInstructions(e.Config.SynthesisMode),
	)

	resp := e.Client.Query(ctx, e.Config.ChairmanModel, []model.Message{{Role: "user", Content: prompt}})
	if resp.Err != "" {
		output.Logger.Error("chairman failed to respond", "backend", e.Config.ChairmanModel, "error", resp.Err)
		return model.SynthesisResult{
			Backend:  e.Config.ChairmanModel,
			Response: synthesisFailureText,
			Failed:   true,
		}
	}

	return model.SynthesisResult{
		Backend:  e.Config.ChairmanModel,
		Response: resp.Content,
	}
}
