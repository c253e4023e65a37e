/*
PURPOSE:
  Stage 2: anonymize the candidates and collect peer rankings.
  Candidates are shuffled and relabeled so reviewers can judge neither
  position nor identity; the label table is round-scoped and never
  leaves the transcript.

REQUIREMENTS:
  User-specified:
  - Uniform random shuffle before labeling; labels are sequential
    letters over the shuffled order.
  - Candidate content is sandboxed inside explicit delimiters in the
    evaluation prompt.
  - Councils larger than MaxReviewers draw a uniform random sample of
    reviewers.

  Implementation-discovered:
  - A reviewer whose output defeats the whole parser chain still
    contributes a submission with an empty ranking.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Uses: CollectResponses, ParseRanking, internal/prompts

RELATED FILES:
  - internal/engine/parser.go
  - internal/prompts/prompts.go
*/

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/daryltucker/council-runner/internal/model"
	"github.com/daryltucker/council-runner/internal/prompts"
)

// CollectRankings anonymizes the candidates, fans the evaluation
// prompt out to the reviewer set, and parses each reply. Returns the
// submissions and the round's label table.
func (e *Engine) CollectRankings(ctx context.Context, userQuery string, candidates []model.Candidate) ([]model.RankingSubmission, map[string]string) {
	// Shuffle a copy; the caller's candidate order is not ours to mutate.
	shuffled := append([]model.Candidate(nil), candidates...)
	e.Rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	labelToBackend := make(map[string]string, len(shuffled))
	var sections []string
	for i, c := range shuffled {
		letter := string(rune('A' + i))
		labelToBackend["Response "+letter] = c.Backend
		sections = append(sections, fmt.Sprintf(
			"<candidate_response id=%q>\n%s\n</candidate_response>", letter, c.Response))
	}

	prompt := prompts.Ranking(userQuery, strings.Join(sections, "\n\n"))
	messages := []model.Message{{Role: "user", Content: prompt}}

	reviewers := e.selectReviewers()
	responses, _ := e.CollectResponses(ctx, reviewers, messages)

	submissions := make([]model.RankingSubmission, 0, len(responses))
	for _, resp := range responses {
		submissions = append(submissions, model.RankingSubmission{
			Reviewer: resp.Backend,
			Raw:      resp.Content,
			Parsed:   ParseRanking(resp.Content),
		})
	}

	return submissions, labelToBackend
}

// selectReviewers returns the full council, or a uniform random sample
// of MaxReviewers when the council is larger than the cap.
func (e *Engine) selectReviewers() []string {
	council := e.Config.CouncilModels
	limit := e.Config.MaxReviewers
	if limit <= 0 || len(council) <= limit {
		return append([]string(nil), council...)
	}

	sampled := append([]string(nil), council...)
	e.Rand.Shuffle(len(sampled), func(i, j int) {
		sampled[i], sampled[j] = sampled[j], sampled[i]
	})
	return sampled[:limit]
}
